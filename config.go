package lambdatrace

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/lambdatrace/go-agent/internal"
)

// AttributesConfig controls the attributes captured for one destination, or
// for all destinations when used as Config.Attributes.
type AttributesConfig struct {
	// Enabled controls whether any attributes are captured at all.
	Enabled bool
	// Include contains key patterns (exact, or with a '*' suffix) to
	// capture even though they are not captured by default, such as
	// "request.parameters.*".
	Include []string
	// Exclude contains key patterns to remove from every destination
	// they would otherwise appear on.  Exclude has priority over Include.
	Exclude []string
}

// Config contains Application and Transaction behavior settings.  Use
// NewConfig or the ConfigOption functions to create a Config with proper
// defaults.
type Config struct {
	// AppName identifies the monitored function's data.  Defaults to the
	// Lambda function name.
	AppName string

	// Enabled controls whether the agent collects anything at all.
	// Setting this to false makes every instrumentation touchpoint a
	// no-op.
	Enabled bool

	// Logger controls agent logging.  For debug level logging to stdout:
	//
	//	cfg.Logger = lambdatrace.NewDebugLogger(os.Stdout)
	Logger Logger

	// TransactionGroup is the naming segment between the transaction
	// prefix and the transaction name, e.g. the "Function" in
	// "OtherTransaction/Function/myFunc".
	TransactionGroup string

	// AWSRegion is attached to every transaction as aws.region.  Read
	// from the AWS_REGION environment variable by default.
	AWSRegion string

	// ApdexThreshold is used to calculate apdex metrics for web
	// transactions.
	ApdexThreshold time.Duration

	// Attributes controls attribute capture across all destinations.
	Attributes AttributesConfig

	// TransactionEvents controls transaction analytics events.
	TransactionEvents struct {
		Enabled    bool
		Attributes AttributesConfig
	}

	// TransactionTracer controls transaction traces.
	TransactionTracer struct {
		Attributes AttributesConfig
	}

	// ErrorCollector controls the capture of errors.
	ErrorCollector struct {
		Enabled bool
		// RetentionLimit caps the number of traced errors held between
		// harvests.  Zero selects the default cap.
		RetentionLimit int
		Attributes     AttributesConfig
	}
}

// ConfigOption configures the Config when provided to NewApplication.
type ConfigOption func(*Config)

func defaultConfig() Config {
	c := Config{}

	c.Enabled = true
	c.TransactionGroup = "Function"
	c.ApdexThreshold = 500 * time.Millisecond
	c.Attributes.Enabled = true
	c.TransactionEvents.Enabled = true
	c.TransactionEvents.Attributes.Enabled = true
	c.TransactionTracer.Attributes.Enabled = true
	c.ErrorCollector.Enabled = true
	c.ErrorCollector.Attributes.Enabled = true

	return c
}

// NewConfig applies the options to a default Config.
func NewConfig(opts ...ConfigOption) Config {
	c := defaultConfig()
	for _, opt := range opts {
		if nil != opt {
			opt(&c)
		}
	}
	return c
}

// ConfigAppName sets the application name.
func ConfigAppName(name string) ConfigOption {
	return func(cfg *Config) { cfg.AppName = name }
}

// ConfigEnabled enables or disables the agent.
func ConfigEnabled(enabled bool) ConfigOption {
	return func(cfg *Config) { cfg.Enabled = enabled }
}

// ConfigLogger sets the agent logger.
func ConfigLogger(l Logger) ConfigOption {
	return func(cfg *Config) { cfg.Logger = l }
}

// ConfigDebugLogger populates the config with a debug logger writing to w.
func ConfigDebugLogger(w io.Writer) ConfigOption {
	return func(cfg *Config) { cfg.Logger = NewDebugLogger(w) }
}

type environment struct {
	AppName          string `envconfig:"LAMBDATRACE_APP_NAME"`
	Enabled          bool   `envconfig:"LAMBDATRACE_ENABLED" default:"true"`
	Debug            bool   `envconfig:"LAMBDATRACE_DEBUG" default:"false"`
	ApdexThresholdMS int    `envconfig:"LAMBDATRACE_APDEX_T_MS" default:"500"`

	AttributeInclude []string `envconfig:"LAMBDATRACE_ATTRIBUTES_INCLUDE"`
	AttributeExclude []string `envconfig:"LAMBDATRACE_ATTRIBUTES_EXCLUDE"`

	AWSRegion    string `envconfig:"AWS_REGION"`
	FunctionName string `envconfig:"AWS_LAMBDA_FUNCTION_NAME"`
}

// ConfigFromEnvironment populates the config from environment variables.  A
// malformed environment never fails the wrapped function: the offending
// variable is skipped and the defaults stand.
func ConfigFromEnvironment() ConfigOption {
	return func(cfg *Config) {
		var env environment
		if err := envconfig.Process("", &env); nil != err {
			if nil != cfg.Logger {
				cfg.Logger.Warn("unable to process environment", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		cfg.Enabled = env.Enabled
		if "" != env.AppName {
			cfg.AppName = env.AppName
		} else if "" != env.FunctionName {
			cfg.AppName = env.FunctionName
		}
		cfg.AWSRegion = env.AWSRegion
		cfg.ApdexThreshold = time.Duration(env.ApdexThresholdMS) * time.Millisecond
		cfg.Attributes.Include = append(cfg.Attributes.Include, env.AttributeInclude...)
		cfg.Attributes.Exclude = append(cfg.Attributes.Exclude, env.AttributeExclude...)
		if env.Debug {
			cfg.Logger = NewDebugLogger(os.Stdout)
		}
	}
}

func (c Config) validate() error {
	if c.ErrorCollector.RetentionLimit < 0 {
		return fmt.Errorf("invalid error retention limit %d", c.ErrorCollector.RetentionLimit)
	}
	return nil
}

func convertAttributeConfig(c Config) internal.AttributeConfig {
	convert := func(ac AttributesConfig) internal.AttributeDestinationConfig {
		return internal.AttributeDestinationConfig{
			Enabled: ac.Enabled,
			Include: ac.Include,
			Exclude: ac.Exclude,
		}
	}
	return internal.AttributeConfig{
		All:               convert(c.Attributes),
		TransactionEvents: convert(c.TransactionEvents.Attributes),
		TransactionTracer: convert(c.TransactionTracer.Attributes),
		ErrorCollector:    convert(c.ErrorCollector.Attributes),
	}
}
