package internal

import (
	"encoding/json"
	"time"
)

// TxnEvent is a transaction analytics event.
type TxnEvent struct {
	Name      string
	Timestamp time.Time
	Duration  time.Duration
	Zone      ApdexZone
	Attrs     *AttributeSets
}

// MarshalJSON prepares JSON in the three element format expected by the
// collector: intrinsics, user attributes, agent attributes.  Only the
// attributes visible on the transaction event destination appear here.
func (e *TxnEvent) MarshalJSON() ([]byte, error) {
	intrinsics := map[string]interface{}{
		"type":      "Transaction",
		"name":      e.Name,
		"timestamp": timeToFloatSeconds(e.Timestamp),
		"duration":  e.Duration.Seconds(),
	}
	if ApdexNone != e.Zone {
		intrinsics["nr.apdexPerfZone"] = e.Zone.label()
	}

	user := map[string]interface{}{}
	agent := map[string]interface{}{}
	if nil != e.Attrs {
		user = e.Attrs.UserTxnEvent
		agent = e.Attrs.AgentTxnEvent
	}

	return json.Marshal([]interface{}{intrinsics, user, agent})
}

type txnEvents struct {
	numSeen int
	events  []*TxnEvent
}

func newTxnEvents(max int) *txnEvents {
	return &txnEvents{
		events: make([]*TxnEvent, 0, max),
	}
}

// Add appends an event unless the reservoir is full.
func (events *txnEvents) Add(e *TxnEvent) {
	events.numSeen++
	if len(events.events) < cap(events.events) {
		events.events = append(events.events, e)
	}
}

// CollectorJSON prepares the analytic_event_data payload.
func (events *txnEvents) CollectorJSON(runID interface{}) ([]byte, error) {
	if 0 == len(events.events) {
		return nil, nil
	}
	return json.Marshal([]interface{}{
		runID,
		map[string]interface{}{
			"reservoir_size": cap(events.events),
			"events_seen":    events.numSeen,
		},
		events.events,
	})
}
