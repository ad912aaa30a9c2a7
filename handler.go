// Package lambdatrace instruments AWS Lambda handler functions.
//
// Use this package to wrap your handler before passing it to the Lambda
// runtime.  Each invocation is traced as a transaction, and the collected
// data is logged in the collector payload format when the invocation
// completes.
package lambdatrace

import (
	"context"
	"io"
	"os"
	"reflect"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambda/handlertrace"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/lambdatrace/go-agent/internal"
	"github.com/tidwall/gjson"
)

// requestEvent runs once the runtime has unmarshaled the invocation's event
// payload.  Any fault it raises is swallowed: instrumentation must never
// change the behavior of the wrapped handler.
func requestEvent(ctx context.Context, event interface{}) {
	txn := FromContext(ctx)
	if nil == txn {
		return
	}

	app := appFromContext(ctx)
	if nil == app {
		return
	}

	app.instrument("request event", func() {
		if sourceARN := classifyEventSource(event); "" != sourceARN {
			addAgentAttribute(txn, AttributeAWSLambdaEventSourceARN, sourceARN, internal.DestLimited)
		}

		if request := eventWebRequest(event); nil != request {
			txn.SetWebRequest(*request)
		}
	})
}

// responseEvent runs once the handler has produced its result, before the
// runtime marshals it.
func responseEvent(ctx context.Context, event interface{}) {
	txn := FromContext(ctx)
	if nil == txn {
		return
	}

	app := appFromContext(ctx)
	if nil == app {
		return
	}

	app.instrument("response event", func() {
		if rw := eventResponse(event); nil != rw {
			txn.SetWebResponse(*rw)
		}
	})
}

type appContextKeyType struct{}

var appContextKey appContextKeyType

func appFromContext(ctx context.Context) *Application {
	app, _ := ctx.Value(appContextKey).(*Application)
	return app
}

type writerProvider interface {
	borrowWriter(needsWriter func(writer io.Writer))
}

type defaultWriterProvider struct{}

const telemetryNamedPipe = "/tmp/lambdatrace-telemetry"

func (wp *defaultWriterProvider) borrowWriter(needsWriter func(io.Writer)) {
	// If the telemetry named pipe exists and is writable, use it instead
	// of stdout.
	pipeFile, err := os.OpenFile(telemetryNamedPipe, os.O_WRONLY, 0)
	if err != nil {
		needsWriter(os.Stdout)
		return
	}
	// We need to close the pipe; of course we don't close stdout.
	defer pipeFile.Close()
	needsWriter(pipeFile)
}

// isWebPayload reports whether the raw event payload is shaped like an API
// gateway proxy request.  The kind of the transaction is fixed before the
// handler runs, so this probes the raw JSON rather than waiting for the
// runtime to unmarshal the event.
func isWebPayload(payload []byte) bool {
	if !gjson.ValidBytes(payload) {
		return false
	}
	return gjson.GetBytes(payload, "httpMethod").Exists() &&
		gjson.GetBytes(payload, "path").Exists() &&
		gjson.GetBytes(payload, "headers").Exists()
}

type wrappedHandler struct {
	original lambda.Handler
	app      *Application
	// functionName is copied from lambdacontext.FunctionName for
	// deterministic tests that don't depend on environment variables.
	functionName string
	// hasWriter is used to log the data JSON at the end of each
	// transaction.  The writerProvider manages the lifecycle of the file
	// handle being written to.  This field exists mostly for testing.
	hasWriter writerProvider
}

func (h *wrappedHandler) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	var arn, requestID string
	if lctx, ok := lambdacontext.FromContext(ctx); ok {
		arn = lctx.InvokedFunctionArn
		requestID = lctx.AwsRequestID
	}

	defer h.hasWriter.borrowWriter(func(writer io.Writer) {
		h.app.ServerlessWrite(arn, writer)
	})

	txn := h.app.startTransaction(isWebPayload(payload), h.functionName)
	defer txn.End()

	h.app.instrument("identity attributes", func() {
		h.app.state.storeLambdaARN(arn)

		addAgentAttribute(txn, AttributeAWSRequestID, requestID, internal.DestAll)
		addAgentAttribute(txn, AttributeAWSLambdaARN, h.app.state.getLambdaARN(), internal.DestAll)
		if region := h.app.config.AWSRegion; "" != region {
			addAgentAttribute(txn, AttributeAWSRegion, region, internal.DestAll)
		}

		if h.app.state.consumeColdStart() {
			markColdStart(txn)
			addAgentAttribute(txn, AttributeAWSLambdaColdStart, true, internal.DestAll)
		}

		addAgentAttribute(txn, AttributeAWSLambdaFunctionName, lambdacontext.FunctionName, internal.DestLimited)
		addAgentAttribute(txn, AttributeAWSLambdaFunctionVersion, lambdacontext.FunctionVersion, internal.DestLimited)
		addAgentAttribute(txn, AttributeAWSLambdaMemoryLimit, lambdacontext.MemoryLimitInMB, internal.DestLimited)
	})

	ctx = NewContext(ctx, txn)
	ctx = context.WithValue(ctx, appContextKey, h.app)
	ctx = withInvocationContext(ctx, &InvocationContext{txn: txn})
	ctx = handlertrace.NewContext(ctx, handlertrace.HandlerTrace{
		RequestEvent:  requestEvent,
		ResponseEvent: responseEvent,
	})

	response, err := h.original.Invoke(ctx, payload)

	// The trailing return path is one of the completion conventions: if
	// the handler already completed through the invocation context, this
	// is discarded.
	txn.Complete(err, nil)

	return response, err
}

// WrapHandler wraps the provided handler and returns a new handler with
// instrumentation.  StartHandler should generally be used in place of
// WrapHandler: this function is exposed for consumers who are chaining
// middlewares.
func WrapHandler(handler lambda.Handler, app *Application) lambda.Handler {
	if nil == app || !app.config.Enabled {
		return handler
	}
	return &wrappedHandler{
		original:     handler,
		app:          app,
		functionName: lambdacontext.FunctionName,
		hasWriter:    &defaultWriterProvider{},
	}
}

// Wrap wraps the provided handler and returns a new handler with
// instrumentation.  If the handler is not invocable it is returned
// unchanged and nothing is recorded.  Start should generally be used in
// place of Wrap.
func Wrap(handler interface{}, app *Application) interface{} {
	if nil == handler || reflect.ValueOf(handler).Kind() != reflect.Func {
		return handler
	}
	return WrapHandler(lambda.NewHandler(handler), app)
}

// Start should be used in place of lambda.Start.  Replace:
//
//	lambda.Start(myhandler)
//
// With:
//
//	lambdatrace.Start(myhandler, app)
func Start(handler interface{}, app *Application) {
	if h, ok := Wrap(handler, app).(lambda.Handler); ok {
		lambda.StartHandler(h)
		return
	}
	lambda.Start(handler)
}

// StartHandler should be used in place of lambda.StartHandler.  Replace:
//
//	lambda.StartHandler(myhandler)
//
// With:
//
//	lambdatrace.StartHandler(myhandler, app)
func StartHandler(handler lambda.Handler, app *Application) {
	lambda.StartHandler(WrapHandler(handler, app))
}
