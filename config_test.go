package lambdatrace

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if !cfg.Enabled {
		t.Error("agent should be enabled by default")
	}
	if cfg.TransactionGroup != "Function" {
		t.Error(cfg.TransactionGroup)
	}
	if cfg.ApdexThreshold != 500*time.Millisecond {
		t.Error(cfg.ApdexThreshold)
	}
	if !cfg.Attributes.Enabled {
		t.Error("attributes should be enabled by default")
	}
	if !cfg.TransactionEvents.Enabled {
		t.Error("transaction events should be enabled by default")
	}
	if !cfg.ErrorCollector.Enabled {
		t.Error("error collector should be enabled by default")
	}
	if cfg.ErrorCollector.RetentionLimit != 0 {
		t.Error("retention limit should default to zero, selecting the built in cap")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := NewConfig(
		ConfigAppName("myApp"),
		ConfigEnabled(false),
		nil, // nil options are skipped
	)

	if cfg.AppName != "myApp" {
		t.Error(cfg.AppName)
	}
	if cfg.Enabled {
		t.Error("ConfigEnabled(false) ignored")
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("LAMBDATRACE_APP_NAME", "envApp")
	t.Setenv("LAMBDATRACE_APDEX_T_MS", "250")
	t.Setenv("LAMBDATRACE_ATTRIBUTES_EXCLUDE", "request.headers.*,response.status")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg := NewConfig(ConfigFromEnvironment())

	if cfg.AppName != "envApp" {
		t.Error(cfg.AppName)
	}
	if cfg.ApdexThreshold != 250*time.Millisecond {
		t.Error(cfg.ApdexThreshold)
	}
	if cfg.AWSRegion != "eu-west-1" {
		t.Error(cfg.AWSRegion)
	}
	if len(cfg.Attributes.Exclude) != 2 ||
		cfg.Attributes.Exclude[0] != "request.headers.*" ||
		cfg.Attributes.Exclude[1] != "response.status" {
		t.Error(cfg.Attributes.Exclude)
	}
}

func TestConfigFromEnvironmentDisabled(t *testing.T) {
	t.Setenv("LAMBDATRACE_ENABLED", "false")

	cfg := NewConfig(ConfigFromEnvironment())
	if cfg.Enabled {
		t.Error("LAMBDATRACE_ENABLED=false ignored")
	}
}

func TestConfigFromEnvironmentFunctionNameFallback(t *testing.T) {
	t.Setenv("LAMBDATRACE_APP_NAME", "")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "the-function")

	cfg := NewConfig(ConfigFromEnvironment())
	if cfg.AppName != "the-function" {
		t.Error(cfg.AppName)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.validate(); nil != err {
		t.Error(err)
	}

	cfg.ErrorCollector.RetentionLimit = -1
	if err := cfg.validate(); nil == err {
		t.Error("negative retention limit accepted")
	}
}
