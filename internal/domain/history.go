package domain

import "time"

// RecordStatus is the persisted outcome of a dispatch decision.
type RecordStatus string

const (
	RecordStatusSkipped  RecordStatus = "skipped"
	RecordStatusSnatched RecordStatus = "snatched"
	RecordStatusFailed   RecordStatus = "failed"
)

// WantedRecord is the persisted record of a search decision, keyed by URL.
// A record with status Failed permanently blacklists its URL for all future
// scoring passes.
type WantedRecord struct {
	URL        string
	Provider   string
	ItemID     string
	AuxInfo    ItemKind
	Size       int64
	Title      string
	Mode       SourceMode
	Status     RecordStatus
	DownloadID string
	Result     string
	Date       time.Time
}
