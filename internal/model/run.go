package model

import "time"

// RunStatus represents the current state of a verification run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusVerifying RunStatus = "verifying"
	RunStatusComplete  RunStatus = "complete" // exhausted candidates, no match
	RunStatusMatched   RunStatus = "matched"
	RunStatusFailed    RunStatus = "failed" // fatal error, not a transient one
)

// Run represents a single verification run over a checksum report.
type Run struct {
	ID        string     `json:"id"`
	Report    string     `json:"report"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final tally of a verification run.
type RunResult struct {
	Candidates int            `json:"candidates"` // new candidates after checkpoint filtering
	Processed  int            `json:"processed"`  // completed comparisons that did not match
	Failed     int            `json:"failed"`     // candidates routed to the failed checkpoint
	Match      *VerifiedMatch `json:"match,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

// Attempted returns the number of candidates that reached a terminal
// outcome during the run.
func (r *RunResult) Attempted() int {
	n := r.Processed + r.Failed
	if r.Match != nil {
		n++
	}
	return n
}
