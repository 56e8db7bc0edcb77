package domain

import "time"

const (
	// DedupWindow is how long a processed event is remembered
	DedupWindow = 10 * time.Minute
	// LedgerCapacity is the number of most recent entries the ledger keeps
	LedgerCapacity = 100
)

// ProcessedEventRecord is the ledger entry written for each handled event
type ProcessedEventRecord struct {
	ID              string `json:"id"`
	Signature       string `json:"signature"`
	TimestampMillis int64  `json:"timestamp"`
}

// EventSignature identifies an inbound message for deduplication
func EventSignature(eventID, messageTS, text string) string {
	return eventID + "_" + messageTS + "_" + text
}

// ActionSignature identifies a button click for deduplication
func ActionSignature(messageTS, value string) string {
	return "action_" + messageTS + "_" + value
}
