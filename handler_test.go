package lambdatrace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/lambdatrace/go-agent/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferWriterProvider struct {
	buf *bytes.Buffer
}

func (p *bufferWriterProvider) borrowWriter(needsWriter func(io.Writer)) {
	needsWriter(p.buf)
}

// wrapTestHandler wraps the handler so that each invocation's harvest is
// written to the returned buffer, one payload per line.
func wrapTestHandler(t *testing.T, handler interface{}, app *Application) (lambda.Handler, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	wrapped, ok := Wrap(handler, app).(*wrappedHandler)
	require.True(t, ok, "handler was not wrapped")
	wrapped.functionName = "myFunc"
	wrapped.hasWriter = &bufferWriterProvider{buf: buf}
	return wrapped, buf
}

func invocationContext() context.Context {
	return lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
		AwsRequestID:       "the-request-id",
		InvokedFunctionArn: "the-arn",
	})
}

// parseHarvestLines parses one harvest payload per invocation.
func parseHarvestLines(t *testing.T, buf *bytes.Buffer) []map[string]json.RawMessage {
	t.Helper()

	var out []map[string]json.RawMessage
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if "" == line {
			continue
		}
		_, data, err := internal.ParseServerlessPayload([]byte(line))
		require.NoError(t, err)
		out = append(out, data)
	}
	return out
}

func TestColdStartRecordedOnce(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context) error {
		return nil
	}, app)

	_, err := wrapped.Invoke(invocationContext(), []byte(`{}`))
	require.NoError(t, err)
	_, err = wrapped.Invoke(invocationContext(), []byte(`{}`))
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 2)

	assert.Contains(t, string(harvests[0]["analytic_event_data"]), "aws.lambda.coldStart")
	assert.NotContains(t, string(harvests[1]["analytic_event_data"]), "aws.lambda.coldStart")
}

func TestIdentityAttributes(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context) error {
		return nil
	}, app)

	_, err := wrapped.Invoke(invocationContext(), []byte(`{}`))
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)
	eventData := string(harvests[0]["analytic_event_data"])

	assert.Contains(t, eventData, `"aws.requestId":"the-request-id"`)
	assert.Contains(t, eventData, `"aws.lambda.arn":"the-arn"`)
	// Bulkier identity attributes never appear on transaction events.
	assert.NotContains(t, eventData, "aws.lambda.functionName")
	assert.NotContains(t, eventData, "aws.lambda.memoryLimit")

	assert.Equal(t, "the-arn", app.state.getLambdaARN())
}

func TestBackgroundInvocationMetrics(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context) error {
		return nil
	}, app)

	_, err := wrapped.Invoke(invocationContext(), []byte(`{}`))
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)
	metricData := string(harvests[0]["metric_data"])

	assert.Contains(t, metricData, `"OtherTransaction/Function/myFunc"`)
	assert.Contains(t, metricData, `"OtherTransaction/all"`)
	assert.NotContains(t, metricData, `"HttpDispatcher"`)
}

func TestWebInvocation(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}, app)

	payload := []byte(`{"httpMethod":"GET","path":"/the/path","headers":{"Accept":"text/plain"}}`)
	_, err := wrapped.Invoke(invocationContext(), payload)
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)

	metricData := string(harvests[0]["metric_data"])
	assert.Contains(t, metricData, `"WebTransaction/Function/myFunc"`)
	assert.Contains(t, metricData, `"HttpDispatcher"`)
	assert.Contains(t, metricData, `"Apdex/Function/myFunc"`)

	eventData := string(harvests[0]["analytic_event_data"])
	assert.Contains(t, eventData, `"httpResponseCode":"200"`)
	assert.Contains(t, eventData, `"response.status":"200"`)
	assert.Contains(t, eventData, `"request.method":"GET"`)
}

func TestWebInvocation5xxResponse(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{StatusCode: 502}, nil
	}, app)

	payload := []byte(`{"httpMethod":"GET","path":"/the/path","headers":{}}`)
	_, err := wrapped.Invoke(invocationContext(), payload)
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)

	errorData := string(harvests[0]["error_data"])
	assert.Contains(t, errorData, `"502"`)
	assert.Contains(t, errorData, `"Bad Gateway"`)
	assert.Contains(t, string(harvests[0]["metric_data"]), `"Errors/allWeb"`)
}

func TestHandlerError(t *testing.T) {
	app := testApp(t)
	handlerErr := errors.New("handler blew up")
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context) error {
		return handlerErr
	}, app)

	_, err := wrapped.Invoke(invocationContext(), []byte(`{}`))
	assert.Equal(t, handlerErr, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)

	assert.Contains(t, string(harvests[0]["error_data"]), "handler blew up")
	assert.Contains(t, string(harvests[0]["metric_data"]), `"Errors/allOther"`)
}

func TestInvocationContextCompletion(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context) error {
		require.NotNil(t, FromContext(ctx))
		InvocationContextFromContext(ctx).Fail(errors.New("legacy failure"))
		// The transaction is finished the moment a completion signal fires.
		assert.Nil(t, FromContext(ctx))
		return nil
	}, app)

	_, err := wrapped.Invoke(invocationContext(), []byte(`{}`))
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)

	var errorData [2]json.RawMessage
	require.NoError(t, json.Unmarshal(harvests[0]["error_data"], &errorData))
	var errs []json.RawMessage
	require.NoError(t, json.Unmarshal(errorData[1], &errs))
	assert.Len(t, errs, 1)
	assert.Contains(t, string(errs[0]), "legacy failure")
}

func TestTransactionAccessibleFromHandler(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context) error {
		txn := FromContext(ctx)
		require.NotNil(t, txn)
		txn.AddAttribute("color", "blue")
		return nil
	}, app)

	_, err := wrapped.Invoke(invocationContext(), []byte(`{}`))
	require.NoError(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)
	assert.Contains(t, string(harvests[0]["analytic_event_data"]), `"color":"blue"`)
}

func TestEventSourceAttribute(t *testing.T) {
	app := testApp(t)
	wrapped, buf := wrapTestHandler(t, func(ctx context.Context, e events.SQSEvent) error {
		return errors.New("boom")
	}, app)

	payload := []byte(`{"Records":[{"eventSourceARN":"the-queue-arn","body":"hi"}]}`)
	_, err := wrapped.Invoke(invocationContext(), payload)
	assert.Error(t, err)

	harvests := parseHarvestLines(t, buf)
	require.Len(t, harvests, 1)

	// The event source ARN is a limited attribute: errors carry it,
	// transaction events never do.
	assert.Contains(t, string(harvests[0]["error_data"]), `"aws.lambda.eventSource.arn":"the-queue-arn"`)
	assert.NotContains(t, string(harvests[0]["analytic_event_data"]), "aws.lambda.eventSource.arn")
}

func TestWrapNonInvocable(t *testing.T) {
	app := testApp(t)

	assert.Equal(t, 42, Wrap(42, app))
	assert.Nil(t, Wrap(nil, app))
}

func TestWrapHandlerDisabled(t *testing.T) {
	original := lambda.NewHandler(func(ctx context.Context) error { return nil })

	if _, ok := WrapHandler(original, nil).(*wrappedHandler); ok {
		t.Error("handler wrapped without an application")
	}

	app := testApp(t, ConfigEnabled(false))
	if _, ok := WrapHandler(original, app).(*wrappedHandler); ok {
		t.Error("handler wrapped with a disabled agent")
	}
}

func TestIsWebPayload(t *testing.T) {
	testcases := []struct {
		payload string
		expect  bool
	}{
		{`{"httpMethod":"GET","path":"/","headers":{}}`, true},
		{`{"httpMethod":"GET","path":"/"}`, false},
		{`{"Records":[]}`, false},
		{`not json`, false},
		{``, false},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.expect, isWebPayload([]byte(tc.payload)), tc.payload)
	}
}

func TestHandlerPanicPropagates(t *testing.T) {
	app := testApp(t)
	wrapped, _ := wrapTestHandler(t, func(ctx context.Context) error {
		panic("handler panic")
	}, app)

	assert.Panics(t, func() {
		wrapped.Invoke(invocationContext(), []byte(`{}`))
	})
}
