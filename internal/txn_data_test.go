package internal

import (
	"encoding/json"
	"testing"
	"time"
)

func sampleTxnData(isWeb bool, errorsSeen uint64) *TxnData {
	name := "OtherTransaction/Function/myFunc"
	zone := ApdexNone
	if isWeb {
		name = "WebTransaction/Function/myFunc"
		zone = ApdexTolerating
	}
	if errorsSeen > 0 && isWeb {
		zone = ApdexFailing
	}
	return &TxnData{
		FinalName:      name,
		IsWeb:          isWeb,
		Start:          start,
		Duration:       2 * time.Second,
		TotalTime:      2 * time.Second,
		Zone:           zone,
		ApdexThreshold: time.Second,
		ErrorsSeen:     errorsSeen,
	}
}

func TestCreateTxnMetricsBackground(t *testing.T) {
	mt := newMetricTable(maxMetrics, start)
	CreateTxnMetrics(sampleTxnData(false, 0), mt)

	for _, name := range []string{
		"OtherTransaction/Function/myFunc",
		"OtherTransaction/all",
		"OtherTransactionTotalTime",
		"OtherTransactionTotalTime/Function/myFunc",
	} {
		if !mt.has(name) {
			t.Error("metric missing", name)
		}
	}
	for _, name := range []string{
		"HttpDispatcher", "WebTransaction", "Apdex", "Errors/all",
	} {
		if mt.has(name) {
			t.Error("unexpected metric", name)
		}
	}
}

func TestCreateTxnMetricsWeb(t *testing.T) {
	mt := newMetricTable(maxMetrics, start)
	CreateTxnMetrics(sampleTxnData(true, 0), mt)

	for _, name := range []string{
		"WebTransaction/Function/myFunc",
		"WebTransaction",
		"WebTransactionTotalTime",
		"WebTransactionTotalTime/Function/myFunc",
		"HttpDispatcher",
		"Apdex",
		"Apdex/Function/myFunc",
	} {
		if !mt.has(name) {
			t.Error("metric missing", name)
		}
	}
	if mt.has("Errors/all") {
		t.Error("error metrics present without errors")
	}
}

func TestCreateTxnMetricsErrors(t *testing.T) {
	mt := newMetricTable(maxMetrics, start)
	CreateTxnMetrics(sampleTxnData(true, 1), mt)

	for _, name := range []string{
		"Errors/all",
		"Errors/allWeb",
		"Errors/WebTransaction/Function/myFunc",
	} {
		if !mt.has(name) {
			t.Error("metric missing", name)
		}
	}
	if mt.has("Errors/allOther") {
		t.Error("background error rollup on a web transaction")
	}

	mt = newMetricTable(maxMetrics, start)
	CreateTxnMetrics(sampleTxnData(false, 1), mt)
	if !mt.has("Errors/allOther") {
		t.Error("background error rollup missing")
	}
	if mt.has("Errors/allWeb") {
		t.Error("web error rollup on a background transaction")
	}
}

func TestMergeIntoHarvest(t *testing.T) {
	h := NewHarvest(start, DefaultHarvestConfig())
	data := sampleTxnData(true, 1)
	data.Error = &TracedError{
		When:    start,
		TxnName: data.FinalName,
		Msg:     "boom",
		Klass:   "Error",
	}

	data.MergeIntoHarvest(h)

	if !h.Metrics.has("WebTransaction") {
		t.Error("metrics not merged")
	}
	if h.TxnEvents.numSeen != 1 || len(h.TxnEvents.events) != 1 {
		t.Error("event not merged")
	}
	if h.ErrorTraces.NumHeld() != 1 {
		t.Error("traced error not merged")
	}
}

func TestTxnEventMarshal(t *testing.T) {
	e := &TxnEvent{
		Name:      "WebTransaction/Function/myFunc",
		Timestamp: time.Unix(1, 0),
		Duration:  2 * time.Second,
		Zone:      ApdexFailing,
		Attrs: &AttributeSets{
			UserTxnEvent:  map[string]interface{}{"color": "blue"},
			AgentTxnEvent: map[string]interface{}{"httpResponseCode": "500"},
		},
	}
	js, err := e.MarshalJSON()
	if nil != err {
		t.Fatal(err)
	}
	expect := CompactJSONString(`[
		{"duration":2,"name":"WebTransaction/Function/myFunc","nr.apdexPerfZone":"F","timestamp":1,"type":"Transaction"},
		{"color":"blue"},
		{"httpResponseCode":"500"}]`)
	if string(js) != expect {
		t.Errorf("got  %s\nwant %s", js, expect)
	}
}

func TestTxnEventsReservoir(t *testing.T) {
	events := newTxnEvents(2)
	for i := 0; i < 5; i++ {
		events.Add(&TxnEvent{Name: "T", Timestamp: start})
	}
	if len(events.events) != 2 {
		t.Error("reservoir overflow", len(events.events))
	}
	if events.numSeen != 5 {
		t.Error("events seen", events.numSeen)
	}

	js, err := events.CollectorJSON(nil)
	if nil != err {
		t.Fatal(err)
	}
	var parsed [3]json.RawMessage
	if err := json.Unmarshal(js, &parsed); nil != err {
		t.Fatal(err)
	}
	var header struct {
		ReservoirSize int `json:"reservoir_size"`
		EventsSeen    int `json:"events_seen"`
	}
	if err := json.Unmarshal(parsed[1], &header); nil != err {
		t.Fatal(err)
	}
	if header.ReservoirSize != 2 || header.EventsSeen != 5 {
		t.Error("event payload header", header)
	}
}
