package lambdatrace

import (
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// classifyEventSource derives the identifier of the upstream system that
// triggered the invocation from the shape of the event payload.  It returns
// the empty string for unrecognized shapes, in which case no attribute is
// set.
func classifyEventSource(event interface{}) string {
	switch v := event.(type) {
	case events.KinesisFirehoseEvent:
		return "aws:lambda:events"
	case *events.KinesisFirehoseEvent:
		return classifyEventSource(safeDereference(v))

	case events.KinesisEvent:
		if len(v.Records) > 0 {
			return "kinesis:" + v.Records[0].EventSourceArn
		}
	case *events.KinesisEvent:
		return classifyEventSource(safeDereference(v))

	case events.DynamoDBEvent:
		if len(v.Records) > 0 {
			return "dynamodb:" + v.Records[0].EventSourceArn
		}
	case *events.DynamoDBEvent:
		return classifyEventSource(safeDereference(v))

	case events.CodeCommitEvent:
		if len(v.Records) > 0 {
			return v.Records[0].EventSourceARN
		}
	case *events.CodeCommitEvent:
		return classifyEventSource(safeDereference(v))

	case events.SQSEvent:
		if len(v.Records) > 0 {
			return v.Records[0].EventSourceARN
		}
	case *events.SQSEvent:
		return classifyEventSource(safeDereference(v))

	case events.S3Event:
		if len(v.Records) > 0 {
			return v.Records[0].S3.Bucket.Arn
		}
	case *events.S3Event:
		return classifyEventSource(safeDereference(v))

	case events.SNSEvent:
		if len(v.Records) > 0 {
			return v.Records[0].EventSubscriptionArn
		}
	case *events.SNSEvent:
		return classifyEventSource(safeDereference(v))
	}

	return ""
}

func headersFromMap(headers map[string]string) http.Header {
	hdr := make(http.Header, len(headers))
	for k, v := range headers {
		hdr.Set(k, v)
	}
	return hdr
}

// eventWebRequest extracts the HTTP shaped portion of an event payload, or
// nil if the event is not HTTP shaped.
func eventWebRequest(event interface{}) *WebRequest {
	var path string
	var request WebRequest
	var headers map[string]string

	switch r := event.(type) {
	case events.APIGatewayProxyRequest:
		request.Method = r.HTTPMethod
		path = r.Path
		headers = r.Headers
		request.QueryParameters = r.QueryStringParameters
		request.PathParameters = r.PathParameters
	case *events.APIGatewayProxyRequest:
		return eventWebRequest(safeDereference(r))

	case events.ALBTargetGroupRequest:
		request.Method = r.HTTPMethod
		path = r.Path
		headers = r.Headers
		request.QueryParameters = r.QueryStringParameters
	case *events.ALBTargetGroupRequest:
		return eventWebRequest(safeDereference(r))

	case events.LambdaFunctionURLRequest:
		request.Method = r.RequestContext.HTTP.Method
		path = r.RequestContext.HTTP.Path
		headers = r.Headers
		request.QueryParameters = r.QueryStringParameters
	case *events.LambdaFunctionURLRequest:
		return eventWebRequest(safeDereference(r))

	default:
		return nil
	}

	request.Header = headersFromMap(headers)

	var host string
	if port := request.Header.Get("X-Forwarded-Port"); port != "" {
		host = ":" + port
	}
	request.URL = &url.URL{
		Path: path,
		Host: host,
	}

	return &request
}

// eventResponse extracts the HTTP shaped portion of a handler result, or nil
// if the result is not HTTP shaped.
func eventResponse(event interface{}) *WebResponse {
	var code int
	var headers map[string]string
	var multiValueHeaders map[string][]string

	switch r := event.(type) {
	case events.APIGatewayProxyResponse:
		code = r.StatusCode
		headers = r.Headers
		multiValueHeaders = r.MultiValueHeaders
	case *events.APIGatewayProxyResponse:
		return eventResponse(safeDereference(r))

	case events.ALBTargetGroupResponse:
		code = r.StatusCode
		headers = r.Headers
		multiValueHeaders = r.MultiValueHeaders
	case *events.ALBTargetGroupResponse:
		return eventResponse(safeDereference(r))

	case events.LambdaFunctionURLResponse:
		code = r.StatusCode
		headers = r.Headers
	case *events.LambdaFunctionURLResponse:
		return eventResponse(safeDereference(r))

	default:
		return nil
	}

	if 0 == code {
		return nil
	}

	// When the same key appears in both headers and multiValueHeaders,
	// the multi value entry takes priority, matching how API Gateway
	// merges them.
	hdr := make(http.Header, len(headers)+len(multiValueHeaders))
	for k, v := range headers {
		hdr.Set(k, v)
	}
	for k, v := range multiValueHeaders {
		if len(v) == 0 {
			continue
		}
		hdr.Set(k, v[0])
	}

	return &WebResponse{
		StatusCode: code,
		Header:     hdr,
	}
}

func safeDereference[T any](p *T) T {
	if p == nil {
		var z T
		return z
	}
	return *p
}
