package internal

const (
	// transaction behavior
	maxStackTraceFrames = 100

	// MaxTxnErrors is the maximum number of errors retained per
	// transaction.
	MaxTxnErrors = 5

	// harvest data
	maxMetrics = 2 * 1000

	// MaxHarvestErrors is the default error aggregator retention cap.
	// Errors noticed once the cap is reached are discarded.
	MaxHarvestErrors = 20

	// attributes
	attributeKeyLengthLimit   = 255
	attributeValueLengthLimit = 255
	attributeUserLimit        = 64
	attributeAgentLimit       = 255 - attributeUserLimit
)
