package lambdatrace

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lambdatrace/go-agent/internal"
)

type txnState int

const (
	txnPending txnState = iota
	txnActive
	txnEnded
)

const (
	webTxnPrefix        = "WebTransaction/"
	backgroundTxnPrefix = "OtherTransaction/"
)

var (
	// errAlreadyEnded is returned by methods that record new data if the
	// transaction has already completed.
	errAlreadyEnded = errors.New("transaction has already ended")
	// errNilError is returned if the provided error is nil.
	errNilError = errors.New("nil error")
)

type txn struct {
	app *Application
	// This mutex is required since the consumer may call the public API
	// interface functions from different goroutines.
	sync.Mutex

	id        string
	state     txnState
	isWeb     bool
	name      string // Work in progress name.
	start     time.Time
	coldStart bool

	attrs      *internal.Attributes
	err        *internal.TracedError // Held error, first notice wins.
	errorsSeen uint64

	responseCode int

	// Fields assigned at completion.
	stop      time.Time
	duration  time.Duration
	finalName string
	frozen    *internal.AttributeSets
}

func newTxn(app *Application, isWeb bool, name string) *txn {
	return &txn{
		app:   app,
		id:    uuid.NewString(),
		state: txnPending,
		isWeb: isWeb,
		name:  name,
		attrs: internal.NewAttributes(app.attrFilter),
	}
}

func (t *txn) activate() {
	t.Lock()
	defer t.Unlock()

	if txnPending != t.state {
		return
	}
	t.state = txnActive
	t.start = time.Now()
}

func (t *txn) ID() string { return t.id }

func (t *txn) IsActive() bool {
	t.Lock()
	defer t.Unlock()
	return txnActive == t.state
}

func (t *txn) Name() string {
	t.Lock()
	defer t.Unlock()

	if "" != t.finalName {
		return t.finalName
	}
	return t.fullNameLocked()
}

func (t *txn) fullNameLocked() string {
	prefix := backgroundTxnPrefix
	if t.isWeb {
		prefix = webTxnPrefix
	}
	return prefix + t.app.config.TransactionGroup + "/" + t.name
}

func (t *txn) SetName(name string) error {
	t.Lock()
	defer t.Unlock()

	if txnEnded == t.state {
		return errAlreadyEnded
	}
	t.name = name
	return nil
}

func (t *txn) setColdStart(b bool) {
	t.Lock()
	defer t.Unlock()
	t.coldStart = b
}

// AddAttribute adds a user attribute.  Mutation after completion is a
// silent no-op.
func (t *txn) AddAttribute(key string, value interface{}) error {
	t.Lock()
	defer t.Unlock()

	if txnEnded == t.state {
		return nil
	}
	return t.attrs.AddUser(key, value, internal.DestAll)
}

// addAgent adds an agent attribute.  Mutation after completion is a silent
// no-op.
func (t *txn) addAgent(key string, value interface{}, d internal.Destination) {
	t.Lock()
	defer t.Unlock()

	if txnEnded == t.state {
		return
	}
	t.attrs.AddAgent(key, value, d)
}

// addAgentAttribute adds an agent attribute to a transaction created by this
// package.  Instrumentation hooks receive the public interface type.
func addAgentAttribute(tn Transaction, key string, value interface{}, d internal.Destination) {
	if t, ok := tn.(*txn); ok {
		t.addAgent(key, value, d)
	}
}

// markColdStart flags the transaction as the first one served by this
// process.
func markColdStart(tn Transaction) {
	if t, ok := tn.(*txn); ok {
		t.setColdStart(true)
	}
}

func (t *txn) NoticeError(err error) error {
	return t.noticeError(err, false)
}

func (t *txn) NoticeExpectedError(err error) error {
	return t.noticeError(err, true)
}

func (t *txn) noticeError(err error, expected bool) error {
	t.Lock()
	defer t.Unlock()

	if txnEnded == t.state {
		return errAlreadyEnded
	}
	if nil == err {
		return errNilError
	}
	t.noticeErrorInternal(internal.NewTracedError(err, "", time.Now()), expected)
	return nil
}

// noticeErrorInternal must be called with the lock held.
func (t *txn) noticeErrorInternal(e *internal.TracedError, expected bool) {
	// errorsSeen feeds the error metrics, which do not depend on whether
	// error capture is enabled.
	t.errorsSeen++

	if !t.app.config.ErrorCollector.Enabled {
		return
	}
	if nil != t.err {
		return
	}
	e.Expected = expected
	t.err = e
}

func (t *txn) SetWebRequest(r WebRequest) error {
	t.Lock()
	defer t.Unlock()

	if txnEnded == t.state {
		return errAlreadyEnded
	}
	t.setWebRequestLocked(r)
	return nil
}

func (t *txn) setWebRequestLocked(r WebRequest) {
	t.isWeb = true

	if "" != r.Method {
		t.attrs.AddAgent(AttributeRequestMethod, r.Method, internal.DestAll)
	}
	if nil != r.URL {
		t.attrs.AddAgent(AttributeRequestURI, safeURL(r.URL), internal.DestAll)
	}
	for name := range r.Header {
		key := AttributeRequestHeadersPrefix + internal.CanonicalAttributeKey(name)
		t.attrs.AddAgent(key, r.Header.Get(name), internal.DestAll)
	}
	// Parameters are visible only under an explicit include rule.
	for name, value := range r.QueryParameters {
		t.attrs.AddAgent(AttributeRequestParametersPrefix+name, value, internal.DestNone)
	}
	for name, value := range r.PathParameters {
		t.attrs.AddAgent(AttributeRequestParametersPrefix+name, value, internal.DestNone)
	}
}

var (
	// statusCodeLookup avoids a strconv.Itoa call.
	statusCodeLookup = map[int]string{
		100: "100", 101: "101",
		200: "200", 201: "201", 202: "202", 203: "203", 204: "204", 205: "205", 206: "206",
		300: "300", 301: "301", 302: "302", 303: "303", 304: "304", 305: "305", 307: "307",
		400: "400", 401: "401", 402: "402", 403: "403", 404: "404", 405: "405", 406: "406",
		407: "407", 408: "408", 409: "409", 410: "410", 411: "411", 412: "412", 413: "413",
		414: "414", 415: "415", 416: "416", 417: "417", 418: "418", 428: "428", 429: "429",
		431: "431", 451: "451",
		500: "500", 501: "501", 502: "502", 503: "503", 504: "504", 505: "505", 511: "511",
	}
)

func statusCodeString(code int) string {
	if str, ok := statusCodeLookup[code]; ok {
		return str
	}
	return strconv.Itoa(code)
}

func (t *txn) SetWebResponse(r WebResponse) error {
	t.Lock()
	defer t.Unlock()

	if txnEnded == t.state {
		return errAlreadyEnded
	}
	t.setWebResponseLocked(r)
	return nil
}

func (t *txn) setWebResponseLocked(r WebResponse) {
	if 0 == r.StatusCode {
		return
	}
	t.responseCode = r.StatusCode

	// The status code is recorded as a string under both the legacy key
	// and the current key.
	code := statusCodeString(r.StatusCode)
	t.attrs.AddAgent(AttributeResponseCode, code, internal.DestAll)
	t.attrs.AddAgent(AttributeResponseStatus, code, internal.DestAll)

	for name := range r.Header {
		key := AttributeResponseHeadersPrefix + internal.CanonicalAttributeKey(name)
		t.attrs.AddAgent(key, r.Header.Get(name), internal.DestAll)
	}
}

func (t *txn) End() error {
	return t.complete(nil, nil)
}

func (t *txn) Complete(err error, result interface{}) {
	t.complete(err, result)
}

// complete is the single completion entry point.  Every completion
// convention funnels here; the first caller performs finalization and the
// rest are discarded.
func (t *txn) complete(err error, result interface{}) error {
	t.Lock()

	if txnEnded == t.state {
		t.Unlock()
		return errAlreadyEnded
	}
	t.state = txnEnded

	if nil != result {
		if rw := eventResponse(result); nil != rw {
			t.setWebResponseLocked(*rw)
		}
	}

	t.stop = time.Now()
	t.duration = t.stop.Sub(t.start)
	t.finalName = t.fullNameLocked()

	if nil != err {
		t.noticeErrorInternal(internal.NewTracedError(err, "", t.stop), false)
	} else if t.isWeb && t.responseCode >= http.StatusInternalServerError {
		t.noticeErrorInternal(tracedErrorFromResponseCode(t.responseCode, t.stop), false)
	}

	// Freeze the attribute projections, then settle the held error with
	// the final name and the error destination attributes.
	t.frozen = t.attrs.Freeze()
	if nil != t.err {
		t.err.TxnName = t.finalName
		t.err.UserAttrs = t.frozen.UserError
		t.err.AgentAttrs = t.frozen.AgentError
	}

	zone := internal.ApdexNone
	threshold := t.app.config.ApdexThreshold
	if t.isWeb {
		if t.errorsSeen > 0 {
			zone = internal.ApdexFailing
		} else {
			zone = internal.CalculateApdexZone(threshold, t.duration)
		}
	}

	data := &internal.TxnData{
		FinalName:      t.finalName,
		IsWeb:          t.isWeb,
		Start:          t.start,
		Duration:       t.duration,
		TotalTime:      t.duration,
		Zone:           zone,
		ApdexThreshold: threshold,
		ErrorsSeen:     t.errorsSeen,
		Error:          t.err,
		Attrs:          t.frozen,
	}

	summary := TransactionSummary{
		ID:        t.id,
		Name:      t.finalName,
		IsWeb:     t.isWeb,
		Start:     t.start,
		Duration:  t.duration,
		ColdStart: t.coldStart,
		HasError:  t.errorsSeen > 0,
	}

	enabled := t.app.config.Enabled
	t.Unlock()

	if enabled {
		t.app.consume(data)
	}

	// Observers are notified strictly last: they never see a transaction
	// whose attributes or metrics are still settling.
	t.app.notifyCompletion(summary)

	return nil
}

func tracedErrorFromResponseCode(code int, now time.Time) *internal.TracedError {
	msg := http.StatusText(code)
	if "" == msg {
		msg = "response code " + statusCodeString(code)
	}
	return &internal.TracedError{
		When:    now,
		TxnName: internal.UnknownTransactionName,
		Msg:     msg,
		Klass:   statusCodeString(code),
	}
}
