package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/keysearch-cli/internal/model"
	"github.com/sells-group/keysearch-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of verification activity.
type MetricsSnapshot struct {
	// Run counts within the lookback window.
	RunsTotal     int `json:"runs_total"`
	RunsQueued    int `json:"runs_queued"`
	RunsVerifying int `json:"runs_verifying"`
	RunsComplete  int `json:"runs_complete"`
	RunsMatched   int `json:"runs_matched"`
	RunsFailed    int `json:"runs_failed"`

	// Derived rates over finished runs.
	FailRate  float64 `json:"fail_rate"`
	MatchRate float64 `json:"match_rate"`

	// Candidate throughput aggregated from run results.
	CandidatesAttempted int `json:"candidates_attempted"`
	CandidatesFailed    int `json:"candidates_failed"`
	AvgRunDurationMS    int `json:"avg_run_duration_ms"`

	// Age of the oldest run still in progress, zero when none are active.
	OldestActiveSecs int `json:"oldest_active_secs"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalDurationMS int64
	var timedRuns int
	var oldestActive time.Time

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusQueued:
			snap.RunsQueued++
		case model.RunStatusVerifying:
			snap.RunsVerifying++
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusMatched:
			snap.RunsMatched++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}

		if r.Status == model.RunStatusQueued || r.Status == model.RunStatusVerifying {
			if oldestActive.IsZero() || r.CreatedAt.Before(oldestActive) {
				oldestActive = r.CreatedAt
			}
		}

		if r.Result != nil {
			snap.CandidatesAttempted += r.Result.Attempted()
			snap.CandidatesFailed += r.Result.Failed
			if r.Result.DurationMS > 0 {
				totalDurationMS += r.Result.DurationMS
				timedRuns++
			}
		}
	}

	finished := snap.RunsComplete + snap.RunsMatched + snap.RunsFailed
	if finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
		snap.MatchRate = float64(snap.RunsMatched) / float64(finished)
	}
	if timedRuns > 0 {
		snap.AvgRunDurationMS = int(totalDurationMS / int64(timedRuns))
	}
	if !oldestActive.IsZero() {
		snap.OldestActiveSecs = int(now.Sub(oldestActive).Seconds())
	}

	return snap, nil
}
