package domain

import "time"

// RunReason records why a crawl run stopped.
type RunReason string

// RunReason values.
const (
	RunReasonFinished RunReason = "finished"
	RunReasonCanceled RunReason = "canceled"
	RunReasonFailed   RunReason = "failed"
)

// Run is the persisted summary of one crawl.
type Run struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	Reason      RunReason `json:"reason,omitempty"`
	Seeds       []string  `json:"seeds"`
	Categories  int       `json:"categories"`   // Categories that reached a terminal state
	Empty       int       `json:"empty"`        // Categories whose count probe returned zero
	Products    int       `json:"products"`     // Records emitted
	Failures    int       `json:"failures"`     // Units abandoned on transport or decode errors
	RateLimited int       `json:"rate_limited"` // 429 responses absorbed by the fetcher
	Skipped     int       `json:"skipped"`      // Malformed listing entries and empty details
}

// Duration returns how long the run took, or zero if it is still going.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
