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

	"github.com/sells-group/keysearch-cli/internal/fingerprint"
)

var (
	fingerprintDir         string
	fingerprintReport      string
	fingerprintConcurrency int
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Hash generated chunks into a checksum report",
	Long:  "Hashes every file in the chunk directory with SHA-256 and writes a label,checksum report consumable by verify.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir := fingerprintDir
		if dir == "" {
			dir = cfg.Fingerprint.Dir
		}
		reportPath := fingerprintReport
		if reportPath == "" {
			reportPath = cfg.Fingerprint.Report
		}
		concurrency := fingerprintConcurrency
		if concurrency == 0 {
			concurrency = cfg.Fingerprint.Concurrency
		}

		start := time.Now()
		records, err := fingerprint.HashDir(ctx, dir, concurrency)
		if err != nil {
			return eris.Wrapf(err, "fingerprint: hash %s", dir)
		}

		if err := fingerprint.WriteReport(reportPath, records); err != nil {
			return eris.Wrap(err, "fingerprint: write report")
		}

		zap.L().Info("fingerprint: complete",
			zap.Int("files", len(records)),
			zap.String("report", reportPath),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Fprintf(os.Stdout, "hashed %d files into %s\n", len(records), reportPath)
		return nil
	},
}

func init() {
	fingerprintCmd.Flags().StringVar(&fingerprintDir, "dir", "", "directory of files to hash (default from config)")
	fingerprintCmd.Flags().StringVar(&fingerprintReport, "report", "", "output report path (default from config)")
	fingerprintCmd.Flags().IntVar(&fingerprintConcurrency, "concurrency", 0, "parallel hashing workers (default from config)")
	rootCmd.AddCommand(fingerprintCmd)
}
