package campaign

import "github.com/google/uuid"

// SkipReason tags why a candidate left the funnel early.
type SkipReason string

const (
	SkipLowScore           SkipReason = "low_score"
	SkipRunLimitReached    SkipReason = "run_limit_reached"
	SkipDailyCapReached    SkipReason = "daily_cap_reached"
	SkipDetailsUnavailable SkipReason = "details_unavailable"
	SkipNoWebsite          SkipReason = "no_website"
	SkipLowFinalScore      SkipReason = "low_final_score"
	SkipGenerationFailed   SkipReason = "generation_failed"
	SkipInvalidRecipient   SkipReason = "invalid_recipient"
	SkipDispatchFailed     SkipReason = "dispatch_failed"
)

// RunSummary reports one campaign invocation to the operator. It is never
// persisted.
type RunSummary struct {
	RunID      uuid.UUID          `json:"run_id"`
	Discovered int                `json:"discovered"`
	Qualified  int                `json:"qualified"`
	Enriched   int                `json:"enriched"`
	Generated  int                `json:"generated"`
	Sent       int                `json:"sent"`
	Skipped    map[SkipReason]int `json:"skipped"`
}

// NewRunSummary initialises an empty summary for a run.
func NewRunSummary(runID uuid.UUID) *RunSummary {
	return &RunSummary{RunID: runID, Skipped: make(map[SkipReason]int)}
}

func (s *RunSummary) skip(reason SkipReason) {
	s.Skipped[reason]++
}

// TotalSkipped sums skips across all reasons.
func (s *RunSummary) TotalSkipped() int {
	total := 0
	for _, count := range s.Skipped {
		total += count
	}
	return total
}
