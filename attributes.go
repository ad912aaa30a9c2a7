package lambdatrace

// This file contains the names of the automatically captured attributes.
// Attributes are key value pairs attached to transaction events, transaction
// traces, and errors.  You may add your own attributes using the
// Transaction.AddAttribute method (see transaction.go).
//
// These attribute names are exposed here to facilitate configuration:
// placing one of them in Config.Attributes.Exclude removes it from every
// destination it would otherwise appear on.

// Attributes destined for transaction events, transaction traces, and
// errors:
const (
	// AttributeResponseCode is the response status code for a web request,
	// under its legacy key.
	AttributeResponseCode = "httpResponseCode"
	// AttributeResponseStatus is the response status code under its
	// current key.
	AttributeResponseStatus = "response.status"
	// AttributeRequestMethod is the request's method.
	AttributeRequestMethod = "request.method"
	// AttributeRequestURI is the request's URL, query parameters excluded.
	AttributeRequestURI = "request.uri"
	// AttributeAWSRequestID is the Lambda invocation's request identifier.
	AttributeAWSRequestID = "aws.requestId"
	// AttributeAWSLambdaARN is the ARN of the Lambda function being run.
	AttributeAWSLambdaARN = "aws.lambda.arn"
	// AttributeAWSLambdaColdStart is true if this transaction is the
	// first transaction since the process started.
	AttributeAWSLambdaColdStart = "aws.lambda.coldStart"
	// AttributeAWSRegion is the region the function runs in.
	AttributeAWSRegion = "aws.region"
)

// Attributes destined for transaction traces and errors, never transaction
// events:
const (
	// AttributeAWSLambdaFunctionName is the Lambda function's name.
	AttributeAWSLambdaFunctionName = "aws.lambda.functionName"
	// AttributeAWSLambdaFunctionVersion is the Lambda function's version.
	AttributeAWSLambdaFunctionVersion = "aws.lambda.functionVersion"
	// AttributeAWSLambdaMemoryLimit is the configured memory limit, in MB.
	AttributeAWSLambdaMemoryLimit = "aws.lambda.memoryLimit"
	// AttributeAWSLambdaEventSourceARN is the ARN of the invocation's
	// upstream source, when the event payload shape is recognized.
	AttributeAWSLambdaEventSourceARN = "aws.lambda.eventSource.arn"
)

// Header and parameter derived attribute key prefixes.  The header name
// portion of the key is canonicalized to lowerCamel before filter matching,
// so one exclude rule covers every spelling of a header.
const (
	// AttributeRequestHeadersPrefix prefixes request header attributes.
	AttributeRequestHeadersPrefix = "request.headers."
	// AttributeResponseHeadersPrefix prefixes response header attributes.
	AttributeResponseHeadersPrefix = "response.headers."
	// AttributeRequestParametersPrefix prefixes query and path parameter
	// attributes.  Parameters are captured only under an explicit include
	// rule.
	AttributeRequestParametersPrefix = "request.parameters."
)
