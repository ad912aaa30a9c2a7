package internal

import (
	"time"
)

// TxnData is the portion of a finished transaction that is merged into a
// harvest.  It is assembled by the public package after the transaction's
// attributes have been frozen, so every field here is settled.
type TxnData struct {
	FinalName      string
	IsWeb          bool
	Start          time.Time
	Duration       time.Duration
	TotalTime      time.Duration
	Zone           ApdexZone
	ApdexThreshold time.Duration
	ErrorsSeen     uint64
	Error          *TracedError
	Attrs          *AttributeSets
}

// CreateTxnMetrics creates the standard duration and dispatch metrics for a
// finished transaction.
func CreateTxnMetrics(args *TxnData, metrics *metricTable) {
	withoutFirstSegment := removeFirstSegment(args.FinalName)

	// Duration Metrics
	var durationRollup string
	var totalTimeRollup string
	if args.IsWeb {
		durationRollup = webRollup
		totalTimeRollup = totalTimeWeb
		metrics.addDuration(dispatcherMetric, "", args.Duration, 0, forced)
	} else {
		durationRollup = backgroundRollup
		totalTimeRollup = totalTimeBackground
	}

	metrics.addDuration(args.FinalName, "", args.Duration, 0, forced)
	metrics.addDuration(durationRollup, "", args.Duration, 0, forced)

	metrics.addDuration(totalTimeRollup, "", args.TotalTime, args.TotalTime, forced)
	metrics.addDuration(totalTimeRollup+"/"+withoutFirstSegment, "", args.TotalTime, args.TotalTime, unforced)

	// Apdex Metrics
	if args.Zone != ApdexNone {
		metrics.addApdex(apdexRollup, "", args.ApdexThreshold, args.Zone, forced)
		metrics.addApdex(apdexPrefix+withoutFirstSegment, "", args.ApdexThreshold, args.Zone, unforced)
	}

	// Error Metrics
	if args.ErrorsSeen > 0 {
		metrics.addSingleCount(errorsAll, forced)
		if args.IsWeb {
			metrics.addSingleCount(errorsWeb, forced)
		} else {
			metrics.addSingleCount(errorsBackground, forced)
		}
		metrics.addSingleCount(errorsPrefix+args.FinalName, forced)
	}
}

// MergeIntoHarvest implements Harvestable.
func (args *TxnData) MergeIntoHarvest(h *Harvest) {
	CreateTxnMetrics(args, h.Metrics)

	h.TxnEvents.Add(&TxnEvent{
		Name:      args.FinalName,
		Timestamp: args.Start,
		Duration:  args.Duration,
		Zone:      args.Zone,
		Attrs:     args.Attrs,
	})

	if nil != args.Error {
		h.ErrorTraces.NoticeTraced(args.Error)
	}
}
