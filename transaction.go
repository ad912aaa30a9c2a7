package lambdatrace

import (
	"net/http"
	"net/url"
)

// Transaction traces one invocation from start to completion.  Transactions
// are safe for use in multiple goroutines.
type Transaction interface {
	// Complete ends the transaction with the handler's outcome.  Only
	// the first completion signal has any effect: later calls, from any
	// of the completion conventions, are silently ignored.  The result,
	// when HTTP shaped, contributes response attributes and 5xx error
	// detection.
	Complete(err error, result interface{})

	// End finishes the transaction with no outcome, stopping all further
	// instrumentation.  Subsequent calls to End or Complete have no
	// effect.
	End() error

	// IsActive is true strictly between the transaction's start and its
	// first completion signal.
	IsActive() bool

	// ID returns the transaction's unique identifier.
	ID() string

	// Name returns the transaction's full name, e.g.
	// "OtherTransaction/Function/myFunc".
	Name() string

	// SetName names the transaction.  Transactions will not be grouped
	// usefully if too many unique names are used.
	SetName(name string) error

	// AddAttribute adds a key value pair to the transaction.  The
	// attribute policy decides which destinations it appears on.  After
	// completion this is a no-op.
	AddAttribute(key string, value interface{}) error

	// NoticeError records an error.  The first error noticed is held and
	// delivered to the error aggregator at completion.
	NoticeError(err error) error

	// NoticeExpectedError records an error whose occurrence is expected:
	// it is captured with the error.expected intrinsic set to true.
	NoticeExpectedError(err error) error

	// SetWebRequest marks the transaction as a web transaction and
	// collects request attributes.
	SetWebRequest(WebRequest) error

	// SetWebResponse collects response attributes, including the status
	// code under both its legacy and current keys.
	SetWebResponse(WebResponse) error
}

// WebRequest is the HTTP shaped portion of an invocation's event payload.
type WebRequest struct {
	Method          string
	URL             *url.URL
	Header          http.Header
	QueryParameters map[string]string
	PathParameters  map[string]string
}

// WebResponse is the HTTP shaped portion of a handler's result.
type WebResponse struct {
	StatusCode int
	Header     http.Header
}
