package internal

import "time"

// ApdexZone is a transaction's apdex classification.
type ApdexZone int

const (
	// ApdexNone is used for transactions without apdex, such as
	// background transactions.
	ApdexNone ApdexZone = iota
	// ApdexSatisfying is a transaction faster than the threshold.
	ApdexSatisfying
	// ApdexTolerating is a transaction slower than the threshold but
	// faster than four times the threshold.
	ApdexTolerating
	// ApdexFailing is a very slow or erroring transaction.
	ApdexFailing
)

// CalculateApdexZone does not take into account whether or not the
// transaction had an error.  That is expected to be done by the caller.
func CalculateApdexZone(threshold, duration time.Duration) ApdexZone {
	if duration <= threshold {
		return ApdexSatisfying
	}
	if duration <= (4 * threshold) {
		return ApdexTolerating
	}
	return ApdexFailing
}

func (zone ApdexZone) label() string {
	switch zone {
	case ApdexSatisfying:
		return "S"
	case ApdexTolerating:
		return "T"
	case ApdexFailing:
		return "F"
	default:
		return ""
	}
}
