package internal

const (
	apdexRollup = "Apdex"
	apdexPrefix = "Apdex/"

	webRollup        = "WebTransaction"
	backgroundRollup = "OtherTransaction/all"

	// "HttpDispatcher" metric is used for the overview graph, and
	// therefore should only be made for web transactions.
	dispatcherMetric = "HttpDispatcher"

	totalTimeWeb        = "WebTransactionTotalTime"
	totalTimeBackground = "OtherTransactionTotalTime"

	errorsAll        = "Errors/all"
	errorsWeb        = "Errors/allWeb"
	errorsBackground = "Errors/allOther"
	errorsPrefix     = "Errors/"

	instanceReporting = "Instance/Reporting"
)
