package entities

import "time"

// EnrichmentStatus is the lifecycle state of a day's enrichment ledger
type EnrichmentStatus string

const (
	EnrichmentStatusPending   EnrichmentStatus = "pending"
	EnrichmentStatusRunning   EnrichmentStatus = "running"
	EnrichmentStatusCompleted EnrichmentStatus = "completed"
	EnrichmentStatusFailed    EnrichmentStatus = "failed"
)

// DefaultPerenualDailyLimit is the provider's free tier quota
const DefaultPerenualDailyLimit = 100

// EnrichmentLog is the ledger for one calendar day. It is the only record of
// how much provider budget that day has consumed.
type EnrichmentLog struct {
	ID                    int64            `json:"id" db:"id"`
	RunDate               time.Time        `json:"run_date" db:"run_date"`
	PerenualRequestsMade  int              `json:"perenual_requests_made" db:"perenual_requests_made"`
	PerenualRequestsLimit int              `json:"perenual_requests_limit" db:"perenual_requests_limit"`
	PlantsProcessed       int              `json:"plants_processed" db:"plants_processed"`
	PlantsEnriched        int              `json:"plants_enriched" db:"plants_enriched"`
	PlantsNotFound        int              `json:"plants_not_found" db:"plants_not_found"`
	PlantsErrored         int              `json:"plants_errored" db:"plants_errored"`
	PlantsCacheHits       int              `json:"plants_cache_hits" db:"plants_cache_hits"`
	StartedAt             *time.Time       `json:"started_at" db:"started_at"`
	CompletedAt           *time.Time       `json:"completed_at" db:"completed_at"`
	Status                EnrichmentStatus `json:"status" db:"status"`
	ErrorMessage          string           `json:"error_message,omitempty" db:"error_message"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
}

// RequestsRemaining returns the unspent budget, never below zero
func (l *EnrichmentLog) RequestsRemaining() int {
	if remaining := l.PerenualRequestsLimit - l.PerenualRequestsMade; remaining > 0 {
		return remaining
	}
	return 0
}

// RunDateOf truncates t to the calendar day in loc
func RunDateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
