package internal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

const (
	// UnknownTransactionName is used for errors noticed outside of any
	// transaction context.
	UnknownTransactionName = "Unknown"

	// defaultErrorClass is used when no better class can be derived from
	// the noticed value.
	defaultErrorClass = "Error"
)

// ErrorClasser may be implemented by errors to control the class reported to
// the collector.
type ErrorClasser interface {
	ErrorClass() string
}

// ErrorClass returns the class reported for the given value: the dynamic
// type name for errors, and the literal "Error" for raw strings and
// anonymous error values.
func ErrorClass(v interface{}) string {
	switch e := v.(type) {
	case ErrorClasser:
		return e.ErrorClass()
	case error:
		t := reflect.TypeOf(e)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		name := t.Name()
		// errors.New and fmt.Errorf values carry no useful type name.
		if "" == name || "errorString" == name || "wrapError" == name {
			return defaultErrorClass
		}
		return name
	default:
		return defaultErrorClass
	}
}

// TracedError is a noticed error held for harvest.
type TracedError struct {
	When       time.Time
	TxnName    string
	Msg        string
	Klass      string
	Expected   bool
	UserAttrs  map[string]interface{}
	AgentAttrs map[string]interface{}
	Stack      []string
}

// NewTracedError classifies a noticed value: an error yields its type name
// as class and Error() as message, a raw string yields class "Error" and the
// string itself as message.  A stack trace is synthesized for raw strings so
// that every traced error carries one.
func NewTracedError(v interface{}, txnName string, now time.Time) *TracedError {
	if "" == txnName {
		txnName = UnknownTransactionName
	}

	e := &TracedError{
		When:    now,
		TxnName: txnName,
		Klass:   ErrorClass(v),
	}

	switch val := v.(type) {
	case error:
		e.Msg = val.Error()
	case string:
		e.Msg = val
	default:
		e.Msg = fmt.Sprintf("%v", v)
	}

	e.Stack = GetStackTrace(1).FrameStrings()

	return e
}

// MarshalJSON prepares JSON in the format expected by the collector:
//
//	[timestamp, transactionName, message, className, {
//	    "userAttributes": {...}, "agentAttributes": {...},
//	    "intrinsics": {"error.expected": bool},
//	    "stack_trace": [line, ...]  // omitted if no stack
//	}]
func (e *TracedError) MarshalJSON() ([]byte, error) {
	userAttrs := e.UserAttrs
	if nil == userAttrs {
		userAttrs = map[string]interface{}{}
	}
	agentAttrs := e.AgentAttrs
	if nil == agentAttrs {
		agentAttrs = map[string]interface{}{}
	}

	return json.Marshal([]interface{}{
		timeToFloatMilliseconds(e.When),
		e.TxnName,
		e.Msg,
		e.Klass,
		struct {
			UserAttrs  map[string]interface{} `json:"userAttributes"`
			AgentAttrs map[string]interface{} `json:"agentAttributes"`
			Intrinsics map[string]interface{} `json:"intrinsics"`
			Stack      []string               `json:"stack_trace,omitempty"`
		}{
			UserAttrs:  userAttrs,
			AgentAttrs: agentAttrs,
			Intrinsics: map[string]interface{}{"error.expected": e.Expected},
			Stack:      e.Stack,
		},
	})
}

// SerializeErrors converts traced errors into the collector wire payload.
// It is a pure function of its input: no I/O, deterministic output.  The
// inner array preserves the order of errs.
func SerializeErrors(runID interface{}, errs []*TracedError) ([]byte, error) {
	return json.Marshal([]interface{}{runID, errs})
}

type errorKey struct {
	txnName string
	klass   string
	msg     string
}

// ErrorAggregator collects traced errors up to a retention cap.  Notice and
// Drain may be called from different goroutines.
type ErrorAggregator struct {
	mu      sync.Mutex
	enabled bool
	runID   int64
	max     int
	errors  []*TracedError
	seen    map[errorKey]struct{}
}

// NewErrorAggregator creates an aggregator retaining up to max errors.  A
// non-positive max falls back to the default cap.
func NewErrorAggregator(max int, enabled bool) *ErrorAggregator {
	if max <= 0 {
		max = MaxHarvestErrors
	}
	return &ErrorAggregator{
		enabled: enabled,
		max:     max,
		seen:    make(map[errorKey]struct{}),
	}
}

// SetRunID associates the aggregator with the collector session.
func (ag *ErrorAggregator) SetRunID(id int64) {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	ag.runID = id
}

// RunID returns the collector session identifier.
func (ag *ErrorAggregator) RunID() int64 {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	return ag.runID
}

// Enabled reports whether capture is enabled at all.
func (ag *ErrorAggregator) Enabled() bool {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	return ag.enabled
}

// NoticeTraced appends a fully formed traced error.  Errors identical in
// transaction name, class, and message to one already held are deduplicated.
// Once the cap is reached new errors are discarded.
func (ag *ErrorAggregator) NoticeTraced(e *TracedError) {
	if nil == e {
		return
	}

	ag.mu.Lock()
	defer ag.mu.Unlock()

	if !ag.enabled {
		return
	}
	if len(ag.errors) >= ag.max {
		return
	}

	key := errorKey{txnName: e.TxnName, klass: e.Klass, msg: e.Msg}
	if _, ok := ag.seen[key]; ok {
		return
	}
	ag.seen[key] = struct{}{}

	ag.errors = append(ag.errors, e)
}

// Notice classifies and appends a noticed value (error or raw string).
func (ag *ErrorAggregator) Notice(v interface{}, txnName string) {
	if nil == v {
		return
	}
	ag.NoticeTraced(NewTracedError(v, txnName, time.Now()))
}

// Drain returns the held errors in capture order and clears the aggregator.
func (ag *ErrorAggregator) Drain() []*TracedError {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	errs := ag.errors
	ag.errors = nil
	ag.seen = make(map[errorKey]struct{})
	return errs
}

// Data prepares the wire payload for the currently held errors, or (nil,
// nil) if there are none.
func (ag *ErrorAggregator) Data() ([]byte, error) {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	if 0 == len(ag.errors) {
		return nil, nil
	}
	return SerializeErrors(ag.runID, ag.errors)
}

// NumHeld returns the number of errors currently held.
func (ag *ErrorAggregator) NumHeld() int {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	return len(ag.errors)
}
