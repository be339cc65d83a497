package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/keysearch-cli/internal/checkpoint"
	"github.com/sells-group/keysearch-cli/internal/model"
	"github.com/sells-group/keysearch-cli/internal/report"
	"github.com/sells-group/keysearch-cli/internal/result"
	"github.com/sells-group/keysearch-cli/internal/verify"
	"github.com/sells-group/keysearch-cli/pkg/oracle"
)

var (
	verifyReport        string
	verifyCheckpointDir string
	verifyResultPath    string
	verifyRate          float64
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify checksum candidates against the oracle",
	Long:  "Reads a checksum report, skips candidates already settled by the checkpoint files, and submits the rest to the oracle one at a time until a key is verified or the report is exhausted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Oracle.Endpoint == "" {
			return eris.New("oracle endpoint is required (KEYSEARCH_ORACLE_ENDPOINT)")
		}

		reportPath := verifyReport
		if reportPath == "" {
			reportPath = cfg.Verify.Report
		}
		checkpointDir := verifyCheckpointDir
		if checkpointDir == "" {
			checkpointDir = cfg.Verify.CheckpointDir
		}
		resultPath := verifyResultPath
		if resultPath == "" {
			resultPath = cfg.Verify.ResultPath
		}
		rps := verifyRate
		if rps == 0 {
			rps = cfg.Oracle.RatePerSec
		}

		// Run-history bookkeeping is best effort: a broken store must not
		// stop a verification run.
		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("verify: run store unavailable, continuing without history", zap.Error(err))
			st = nil
		} else {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				zap.L().Warn("verify: store migration failed, continuing without history", zap.Error(err))
				st = nil
			}
		}

		var runID string
		if st != nil {
			run, err := st.CreateRun(ctx, reportPath)
			if err != nil {
				zap.L().Warn("verify: create run record failed", zap.Error(err))
			} else {
				runID = run.ID
			}
		}

		ledger, err := checkpoint.Load(checkpointDir)
		if err != nil {
			recordFailure(ctx, st, runID, err)
			return eris.Wrap(err, "verify: load checkpoints")
		}
		defer ledger.Close() //nolint:errcheck

		candidates, err := report.Candidates(reportPath, ledger)
		if err != nil {
			recordFailure(ctx, st, runID, err)
			return eris.Wrapf(err, "verify: read report %s", reportPath)
		}

		zap.L().Info("verify: report loaded",
			zap.String("report", reportPath),
			zap.Int("new_candidates", len(candidates)),
			zap.Int("already_processed", ledger.ProcessedCount()),
			zap.Int("previously_failed", ledger.FailedCount()),
		)

		client := oracle.NewClient(cfg.Oracle.Endpoint, oracle.WithTimeout(cfg.Oracle.Timeout()))

		sink := verify.SinkFunc(func(match model.VerifiedMatch) error {
			return result.Write(resultPath, match)
		})

		observer := verify.ObserverFunc(func(done, total int) {
			if done%100 == 0 || done == total {
				zap.L().Info("verify: progress", zap.Int("done", done), zap.Int("total", total))
			}
		})

		engine := verify.New(client, ledger, sink,
			verify.WithObserver(observer),
			verify.WithRateLimit(rps),
		)

		recordStatus(ctx, st, runID, model.RunStatusVerifying)

		start := time.Now()
		summary, err := engine.Run(ctx, candidates)
		elapsed := time.Since(start)

		runResult := &model.RunResult{
			Candidates: summary.Total,
			Processed:  summary.Processed,
			Failed:     summary.Failed,
			Match:      summary.Match,
			DurationMS: elapsed.Milliseconds(),
		}

		if err != nil {
			runResult.Error = err.Error()
			recordCompletion(ctx, st, runID, model.RunStatusFailed, runResult)
			return err
		}

		if summary.Match != nil {
			recordCompletion(ctx, st, runID, model.RunStatusMatched, runResult)
			fmt.Fprintf(os.Stdout, "match found\nchecksum: %s\nkey: %s\nresult written to %s\n",
				summary.Match.Fingerprint, summary.Match.Key, resultPath)
			return nil
		}

		recordCompletion(ctx, st, runID, model.RunStatusComplete, runResult)
		fmt.Fprintf(os.Stdout, "no match: %d processed, %d failed of %d candidates\n",
			summary.Processed, summary.Failed, summary.Total)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyReport, "report", "", "checksum report path (default from config)")
	verifyCmd.Flags().StringVar(&verifyCheckpointDir, "checkpoint-dir", "", "directory holding processed.txt and failed.txt (default from config)")
	verifyCmd.Flags().StringVar(&verifyResultPath, "result", "", "path for the verified result artifact (default from config)")
	verifyCmd.Flags().Float64Var(&verifyRate, "rate", 0, "max oracle submissions per second, 0 disables pacing")
	rootCmd.AddCommand(verifyCmd)
}
