package lambdatrace

import (
	"context"
	"testing"
)

func TestFromContextMissing(t *testing.T) {
	if txn := FromContext(context.Background()); nil != txn {
		t.Error("transaction from an empty context", txn)
	}
}

func TestFromContextActive(t *testing.T) {
	app := testApp(t)
	txn := app.StartTransaction("myFunc")
	ctx := NewContext(context.Background(), txn)

	if got := FromContext(ctx); got != txn {
		t.Error("transaction not carried by the context")
	}

	txn.End()
	if got := FromContext(ctx); nil != got {
		t.Error("completed transaction still visible from the context")
	}
}

func TestInvocationContextMissing(t *testing.T) {
	if ic := InvocationContextFromContext(context.Background()); nil != ic {
		t.Error(ic)
	}
}

func TestInvocationContextNilSafe(t *testing.T) {
	var ic *InvocationContext
	// None of these should panic.
	ic.Done(nil, nil)
	ic.Succeed(nil)
	ic.Fail(nil)

	empty := &InvocationContext{}
	empty.Succeed(nil)
}
