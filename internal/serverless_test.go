package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lambdatrace/go-agent/internal/logger"
)

func serverlessGetEnv(s string) string {
	if s == "AWS_EXECUTION_ENV" {
		return "the-execution-env"
	}
	return ""
}

func TestServerlessHarvest(t *testing.T) {
	sh := NewServerlessHarvest(logger.ShimLogger{}, "the-version", serverlessGetEnv, DefaultHarvestConfig())

	event := &TxnData{
		FinalName: "OtherTransaction/Function/myFunc",
		Start:     time.Now(),
		Duration:  2 * time.Second,
		TotalTime: 2 * time.Second,
	}
	sh.Consume(event)

	buf := &bytes.Buffer{}
	sh.Write("the-arn", buf)

	metadata, data, err := ParseServerlessPayload(buf.Bytes())
	if nil != err {
		t.Fatal(err)
	}
	if v := string(metadata["metadata_version"]); v != "2" {
		t.Error(v)
	}
	if v := string(metadata["arn"]); v != `"the-arn"` {
		t.Error(v)
	}
	if v := string(metadata["protocol_version"]); v != "17" {
		t.Error(v)
	}
	if v := string(metadata["execution_environment"]); v != `"the-execution-env"` {
		t.Error(v)
	}
	if v := string(metadata["agent_version"]); v != `"the-version"` {
		t.Error(v)
	}
	if v := string(metadata["agent_language"]); v != `"go"` {
		t.Error(v)
	}

	metricData := string(data["metric_data"])
	if !strings.Contains(metricData, "OtherTransaction/Function/myFunc") {
		t.Error("transaction metric missing", metricData)
	}
	if !strings.HasPrefix(metricData, "[null,") {
		t.Error("run identifier should be absent", metricData)
	}
	eventData := string(data["analytic_event_data"])
	if !strings.Contains(eventData, "OtherTransaction/Function/myFunc") {
		t.Error("transaction event missing", eventData)
	}
	if _, ok := data["error_data"]; ok {
		t.Error("error payload present without errors")
	}

	// The harvest must be reset by the write.
	buf = &bytes.Buffer{}
	sh.Write("the-arn", buf)
	if buf.Len() != 0 {
		t.Error("empty harvest produced a payload", buf.String())
	}
}

func TestServerlessHarvestErrorData(t *testing.T) {
	sh := NewServerlessHarvest(logger.ShimLogger{}, "the-version", serverlessGetEnv, DefaultHarvestConfig())

	sh.ErrorAggregator().Notice(errors.New("boom"), "OtherTransaction/Function/myFunc")

	buf := &bytes.Buffer{}
	sh.Write("the-arn", buf)

	_, data, err := ParseServerlessPayload(buf.Bytes())
	if nil != err {
		t.Fatal(err)
	}

	var errorData [2]json.RawMessage
	if err := json.Unmarshal(data["error_data"], &errorData); nil != err {
		t.Fatal(err)
	}
	if string(errorData[0]) != "null" {
		t.Error("run identifier should be absent", string(errorData[0]))
	}
	if !strings.Contains(string(errorData[1]), `"boom"`) {
		t.Error("traced error missing", string(errorData[1]))
	}

	if sh.ErrorAggregator().NumHeld() != 0 {
		t.Error("errors not drained by write")
	}
}

func TestServerlessHarvestNil(t *testing.T) {
	var sh *ServerlessHarvest
	// None of these should panic.
	sh.Consume(&TxnData{})
	sh.Write("the-arn", &bytes.Buffer{})
	if nil != sh.ErrorAggregator() {
		t.Error("aggregator from a nil harvest")
	}
}
