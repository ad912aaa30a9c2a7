package lambdatrace

import "context"

type contextKeyType struct{}

var contextKey contextKeyType

// NewContext returns a new context.Context that carries the provided
// transaction.  Asynchronous work spawned within an invocation inherits the
// context, so the transaction remains discoverable from arbitrarily deep
// continuations without being passed explicitly; distinct concurrent
// invocations carry distinct contexts and never observe each other's
// transaction.
func NewContext(ctx context.Context, txn Transaction) context.Context {
	return context.WithValue(ctx, contextKey, txn)
}

// FromContext returns the currently active transaction carried by the
// context, or nil if the context carries none or the transaction has
// already completed.
func FromContext(ctx context.Context) Transaction {
	h, _ := ctx.Value(contextKey).(Transaction)
	if nil == h || !h.IsActive() {
		return nil
	}
	return h
}

type invocationContextKeyType struct{}

var invocationContextKey invocationContextKeyType

// InvocationContext exposes the legacy completion conventions: handlers that
// predate result returning signatures may complete the invocation through
// Done, Succeed, or Fail.  All of them, and the wrapper's own return path,
// funnel into the same one-shot completion: whichever fires first wins and
// the rest are discarded.
type InvocationContext struct {
	txn Transaction
}

// Done completes the invocation with an error and a result, either of which
// may be nil.
func (ic *InvocationContext) Done(err error, result interface{}) {
	if nil == ic || nil == ic.txn {
		return
	}
	ic.txn.Complete(err, result)
}

// Succeed completes the invocation successfully.
func (ic *InvocationContext) Succeed(result interface{}) {
	ic.Done(nil, result)
}

// Fail completes the invocation with an error.
func (ic *InvocationContext) Fail(err error) {
	ic.Done(err, nil)
}

func withInvocationContext(ctx context.Context, ic *InvocationContext) context.Context {
	return context.WithValue(ctx, invocationContextKey, ic)
}

// InvocationContextFromContext returns the InvocationContext for the current
// invocation, or nil when the handler is not running under the wrapper.
func InvocationContextFromContext(ctx context.Context) *InvocationContext {
	ic, _ := ctx.Value(invocationContextKey).(*InvocationContext)
	return ic
}
