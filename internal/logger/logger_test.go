package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := New(buf, false)

	lg.Debug("debug message", nil)
	if buf.Len() != 0 {
		t.Error("debug logged at info level", buf.String())
	}
	if lg.DebugEnabled() {
		t.Error("DebugEnabled")
	}

	lg.Info("info message", map[string]interface{}{"key": "value"})
	out := buf.String()
	if !strings.Contains(out, `"info message"`) {
		t.Error(out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Error(out)
	}
}

func TestDebugLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := New(buf, true)

	if !lg.DebugEnabled() {
		t.Error("DebugEnabled")
	}
	lg.Debug("debug message", nil)
	if !strings.Contains(buf.String(), `"debug message"`) {
		t.Error(buf.String())
	}
}

func TestShimLogger(t *testing.T) {
	var lg Logger = ShimLogger{}
	lg.Error("msg", nil)
	if lg.DebugEnabled() {
		t.Error("DebugEnabled")
	}
	if !(ShimLogger{IsDebugEnabled: true}).DebugEnabled() {
		t.Error("IsDebugEnabled")
	}
}
