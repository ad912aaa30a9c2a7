package lambdatrace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lambdatrace/go-agent/internal"
	"github.com/lambdatrace/go-agent/internal/logger"
)

// agentState holds the process wide flags whose first-invocation semantics
// matter: the cold start flag and the invoked function ARN.  Both are
// mutated at most once and reset only by building a new Application.
type agentState struct {
	mu                sync.Mutex
	coldStartConsumed bool
	lambdaARN         string
}

// consumeColdStart returns true on the first call only.
func (s *agentState) consumeColdStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coldStartConsumed {
		return false
	}
	s.coldStartConsumed = true
	return true
}

// storeLambdaARN caches the invoked function ARN.  First write wins.
func (s *agentState) storeLambdaARN(arn string) {
	if "" == arn {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if "" == s.lambdaARN {
		s.lambdaARN = arn
	}
}

func (s *agentState) getLambdaARN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lambdaARN
}

// TransactionSummary is delivered to completion observers once a
// transaction has fully finalized: its attributes are frozen and its metrics
// recorded by the time an observer sees this value.
type TransactionSummary struct {
	ID        string
	Name      string
	IsWeb     bool
	Start     time.Time
	Duration  time.Duration
	ColdStart bool
	HasError  bool
}

// Application is the top level agent value.  Create one per process using
// NewApplication and pass it to WrapHandler or Start.
type Application struct {
	config     Config
	attrFilter *internal.AttributeFilter
	state      *agentState
	harvest    *internal.ServerlessHarvest

	observerMu sync.Mutex
	observers  []func(TransactionSummary)
}

// NewApplication creates an Application and initializes the process wide
// agent state.  Calling it again fully re-initializes that state, cold
// start flag included.
func NewApplication(opts ...ConfigOption) (*Application, error) {
	cfg := NewConfig(opts...)

	if err := cfg.validate(); nil != err {
		return nil, err
	}
	if nil == cfg.Logger {
		cfg.Logger = logger.ShimLogger{}
	}

	app := &Application{
		config:     cfg,
		attrFilter: internal.NewAttributeFilter(convertAttributeConfig(cfg)),
		state:      &agentState{},
	}

	hc := internal.DefaultHarvestConfig()
	hc.MaxErrors = cfg.ErrorCollector.RetentionLimit
	hc.ErrorsEnabled = cfg.ErrorCollector.Enabled && cfg.Enabled
	if !cfg.TransactionEvents.Enabled || !cfg.Enabled {
		hc.MaxTxnEvents = 0
	}
	app.harvest = internal.NewServerlessHarvest(cfg.Logger, Version, os.Getenv, hc)

	return app, nil
}

// StartTransaction begins a background transaction.  The handler wrapper
// marks a transaction web when the event payload is HTTP shaped.
func (app *Application) StartTransaction(name string) Transaction {
	return app.startTransaction(false, name)
}

func (app *Application) startTransaction(isWeb bool, name string) Transaction {
	t := newTxn(app, isWeb, name)
	t.activate()
	return t
}

// NoticeError records an error noticed outside of any transaction context.
func (app *Application) NoticeError(err error) {
	if nil == app || nil == err {
		return
	}
	app.harvest.ErrorAggregator().Notice(err, "")
}

// RegisterCompletionObserver adds a callback invoked after each transaction
// finalizes.  Observers run on the completing goroutine and should be quick.
func (app *Application) RegisterCompletionObserver(f func(TransactionSummary)) {
	if nil == f {
		return
	}
	app.observerMu.Lock()
	defer app.observerMu.Unlock()
	app.observers = append(app.observers, f)
}

// consume merges finished transaction data into the pending harvest.  This
// runs before observers are notified.
func (app *Application) consume(data *internal.TxnData) {
	app.harvest.Consume(data)
}

func (app *Application) notifyCompletion(summary TransactionSummary) {
	app.observerMu.Lock()
	observers := app.observers
	app.observerMu.Unlock()

	for _, f := range observers {
		f(summary)
	}
}

// ServerlessWrite logs the pending harvest to the writer in the collector
// payload format and starts a fresh harvest.
func (app *Application) ServerlessWrite(arn string, writer io.Writer) {
	if nil == app {
		return
	}
	app.harvest.Write(arn, writer)
}

// instrument runs an instrumentation touchpoint and swallows any fault it
// raises: a bug in the agent must never change the behavior of the wrapped
// handler.
func (app *Application) instrument(what string, f func()) {
	defer func() {
		if r := recover(); nil != r {
			app.config.Logger.Error("instrumentation fault", map[string]interface{}{
				"in":    what,
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()
	f()
}
