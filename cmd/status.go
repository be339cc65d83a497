package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/keysearch-cli/internal/monitoring"
)

var (
	statusLookback int
	statusJSON     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show verification activity over a lookback window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		lookback := statusLookback
		if lookback == 0 {
			lookback = cfg.Monitoring.LookbackWindowHours
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 0, "lookback window in hours (default from config)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

// formatSnapshot writes a human-readable metrics snapshot to w.
func formatSnapshot(out io.Writer, snap *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Runs:\t%d\n", snap.RunsTotal)
	_, _ = fmt.Fprintf(w, "  Queued:\t%d\n", snap.RunsQueued)
	_, _ = fmt.Fprintf(w, "  Verifying:\t%d\n", snap.RunsVerifying)
	_, _ = fmt.Fprintf(w, "  Matched:\t%d\n", snap.RunsMatched)
	_, _ = fmt.Fprintf(w, "  Complete:\t%d\n", snap.RunsComplete)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", snap.RunsFailed)
	_, _ = fmt.Fprintf(w, "Fail rate:\t%.1f%%\n", snap.FailRate*100)
	_, _ = fmt.Fprintf(w, "Match rate:\t%.1f%%\n", snap.MatchRate*100)
	_, _ = fmt.Fprintf(w, "Candidates attempted:\t%d\n", snap.CandidatesAttempted)
	_, _ = fmt.Fprintf(w, "Candidates failed:\t%d\n", snap.CandidatesFailed)
	if snap.AvgRunDurationMS > 0 {
		_, _ = fmt.Fprintf(w, "Avg run duration:\t%.1fs\n", float64(snap.AvgRunDurationMS)/1000)
	}
	if snap.OldestActiveSecs > 0 {
		_, _ = fmt.Fprintf(w, "Oldest active run:\t%ds\n", snap.OldestActiveSecs)
	}
	_ = w.Flush()
}
