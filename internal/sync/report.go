package sync

import (
	"time"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/wanikani"
)

// SkippedRecord notes one record that was dropped from a batch and why.
type SkippedRecord struct {
	ID     int64  // Remote id, 0 when the payload carried none
	Reason string // Classification, e.g. the malformed-record error text
}

// CollectionReport is the explicit outcome of replicating one collection.
//
// FetchErr is set when the upstream fetch itself failed; Updated and Skipped
// then stay empty. Record-level failures land in Skipped without touching
// the batch.
type CollectionReport struct {
	Collection wanikani.Collection
	FetchErr   error
	Updated    int
	Skipped    []SkippedRecord
}

// Failed reports whether the collection fetch itself failed.
func (c CollectionReport) Failed() bool {
	return c.FetchErr != nil
}

// Report collects the results of one sync attempt instead of threading them
// through error propagation.
type Report struct {
	UserID         int64
	LogID          int64
	SyncType       models.SyncType
	Status         models.SyncStatus
	ProfileUpdated bool
	Collections    []CollectionReport
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Total returns the number of records touched across the whole attempt,
// counting the profile refresh as one.
func (r *Report) Total() int {
	total := 0
	if r.ProfileUpdated {
		total++
	}
	for _, c := range r.Collections {
		total += c.Updated
	}
	return total
}

// SkippedTotal returns the number of records dropped across all collections.
func (r *Report) SkippedTotal() int {
	skipped := 0
	for _, c := range r.Collections {
		skipped += len(c.Skipped)
	}
	return skipped
}
