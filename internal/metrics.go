package internal

import (
	"encoding/json"
	"sort"
	"time"
)

type metricForce int

const (
	forced metricForce = iota
	unforced
)

type metricData struct {
	// These values are in the units expected by the collector.
	countSatisfied  float64 // Seconds, or count for Apdex
	totalTolerated  float64 // Seconds, or count for Apdex
	exclusiveFailed float64 // Seconds, or count for Apdex
	min             float64 // Seconds
	max             float64 // Seconds
	sumSquares      float64 // Seconds**2, or 0 for Apdex
}

func metricDataFromDuration(duration, exclusive time.Duration) metricData {
	ds := duration.Seconds()
	return metricData{
		countSatisfied:  1,
		totalTolerated:  ds,
		exclusiveFailed: exclusive.Seconds(),
		min:             ds,
		max:             ds,
		sumSquares:      ds * ds,
	}
}

type metric struct {
	forced metricForce
	data   metricData
}

type metricID struct {
	Name  string `json:"name"`
	Scope string `json:"scope,omitempty"`
}

func (data *metricData) aggregate(src metricData) {
	data.countSatisfied += src.countSatisfied
	data.totalTolerated += src.totalTolerated
	data.exclusiveFailed += src.exclusiveFailed
	if src.min < data.min {
		data.min = src.min
	}
	if src.max > data.max {
		data.max = src.max
	}
	data.sumSquares += src.sumSquares
}

type metricTable struct {
	metricPeriodStart time.Time
	maxTableSize      int // After this max is reached, only forced metrics are added.
	numDropped        int
	metrics           map[metricID]*metric
}

func newMetricTable(maxTableSize int, now time.Time) *metricTable {
	return &metricTable{
		metricPeriodStart: now,
		maxTableSize:      maxTableSize,
		metrics:           make(map[metricID]*metric),
	}
}

func (mt *metricTable) full() bool {
	return len(mt.metrics) >= mt.maxTableSize
}

func (mt *metricTable) add(name, scope string, data metricData, force metricForce) {
	key := metricID{Name: name, Scope: scope}
	if m, ok := mt.metrics[key]; ok {
		m.data.aggregate(data)
		return
	}

	if mt.full() && force != forced {
		mt.numDropped++
		return
	}

	mt.metrics[key] = &metric{
		forced: force,
		data:   data,
	}
}

func (mt *metricTable) addCount(name string, count float64, force metricForce) {
	mt.add(name, "", metricData{countSatisfied: count}, force)
}

func (mt *metricTable) addSingleCount(name string, force metricForce) {
	mt.addCount(name, float64(1), force)
}

func (mt *metricTable) addDuration(name, scope string, duration, exclusive time.Duration, force metricForce) {
	mt.add(name, scope, metricDataFromDuration(duration, exclusive), force)
}

func (mt *metricTable) addApdex(name, scope string, threshold time.Duration, zone ApdexZone, force metricForce) {
	apdexData := metricData{min: threshold.Seconds(), max: threshold.Seconds()}
	switch zone {
	case ApdexSatisfying:
		apdexData.countSatisfied = 1
	case ApdexTolerating:
		apdexData.totalTolerated = 1
	case ApdexFailing:
		apdexData.exclusiveFailed = 1
	}
	mt.add(name, scope, apdexData, force)
}

func (mt *metricTable) merge(src *metricTable) {
	for key, m := range src.metrics {
		mt.add(key.Name, key.Scope, m.data, m.forced)
	}
}

// has exists for testing.
func (mt *metricTable) has(name string) bool {
	_, ok := mt.metrics[metricID{Name: name}]
	return ok
}

func (mt *metricTable) count(name string) float64 {
	if m, ok := mt.metrics[metricID{Name: name}]; ok {
		return m.data.countSatisfied
	}
	return 0
}

// CollectorJSON prepares the metric_data payload: the metric identities are
// sorted by name so the output is deterministic.
func (mt *metricTable) CollectorJSON(runID interface{}, now time.Time) ([]byte, error) {
	if 0 == len(mt.metrics) {
		return nil, nil
	}

	keys := make([]metricID, 0, len(mt.metrics))
	for key := range mt.metrics {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name == keys[j].Name {
			return keys[i].Scope < keys[j].Scope
		}
		return keys[i].Name < keys[j].Name
	})

	elts := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		data := mt.metrics[key].data
		elts = append(elts, []interface{}{key, []float64{
			data.countSatisfied,
			data.totalTolerated,
			data.exclusiveFailed,
			data.min,
			data.max,
			data.sumSquares,
		}})
	}

	return json.Marshal([]interface{}{
		runID,
		timeToFloatSeconds(mt.metricPeriodStart),
		timeToFloatSeconds(now),
		elts,
	})
}
