package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/keysearch-cli/internal/model"
	"github.com/sells-group/keysearch-cli/internal/store"
)

// initStore opens the configured run-history backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "keysearch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// recordStatus updates a run's status, logging instead of failing when the
// store is unavailable.
func recordStatus(ctx context.Context, st store.Store, runID string, status model.RunStatus) {
	if st == nil || runID == "" {
		return
	}
	if err := st.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("run status update failed",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// recordCompletion finalizes a run record, logging instead of failing when
// the store is unavailable.
func recordCompletion(ctx context.Context, st store.Store, runID string, status model.RunStatus, result *model.RunResult) {
	if st == nil || runID == "" {
		return
	}
	if err := st.CompleteRun(ctx, runID, status, result); err != nil {
		zap.L().Warn("run completion update failed",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// recordFailure marks a run failed before any candidates were attempted.
func recordFailure(ctx context.Context, st store.Store, runID string, cause error) {
	recordCompletion(ctx, st, runID, model.RunStatusFailed, &model.RunResult{Error: cause.Error()})
}
