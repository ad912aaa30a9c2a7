package internal

import (
	"time"
)

// Harvestable is something that can be merged into a Harvest.
type Harvestable interface {
	MergeIntoHarvest(h *Harvest)
}

// HarvestConfig controls the per harvest retention caps.
type HarvestConfig struct {
	MaxTxnEvents  int
	MaxErrors     int
	ErrorsEnabled bool
}

// DefaultHarvestConfig uses the documented default caps.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		MaxTxnEvents:  maxTxnEvents,
		MaxErrors:     MaxHarvestErrors,
		ErrorsEnabled: true,
	}
}

const maxTxnEvents = 10 * 1000

// Harvest contains collected data pending delivery to the collector.
type Harvest struct {
	Metrics     *metricTable
	ErrorTraces *ErrorAggregator
	TxnEvents   *txnEvents
}

// NewHarvest returns a fresh Harvest.
func NewHarvest(now time.Time, cfg HarvestConfig) *Harvest {
	return &Harvest{
		Metrics:     newMetricTable(maxMetrics, now),
		ErrorTraces: NewErrorAggregator(cfg.MaxErrors, cfg.ErrorsEnabled),
		TxnEvents:   newTxnEvents(cfg.MaxTxnEvents),
	}
}
