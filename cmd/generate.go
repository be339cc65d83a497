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

	"github.com/sells-group/keysearch-cli/internal/generate"
)

var (
	generateTable     string
	generateOutputDir string
	generateChunkSize int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate candidate arrays as CSV chunks",
	Long:  "Enumerates every arrangement of the parameter table's alphabet across its slot groups and writes the arrays to chunked CSV files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tablePath := generateTable
		if tablePath == "" {
			tablePath = cfg.Generate.Table
		}
		outputDir := generateOutputDir
		if outputDir == "" {
			outputDir = cfg.Generate.OutputDir
		}
		chunkSize := generateChunkSize
		if chunkSize == 0 {
			chunkSize = cfg.Generate.ChunkSize
		}

		table, err := generate.LoadTable(tablePath)
		if err != nil {
			return eris.Wrap(err, "generate: load parameter table")
		}

		zap.L().Info("generate: starting",
			zap.Strings("alphabet", table.Alphabet),
			zap.Int("groups", len(table.Groups)),
			zap.Int("expected_rows", table.Count()),
			zap.String("output_dir", outputDir),
			zap.Int("chunk_size", chunkSize),
		)

		start := time.Now()
		stats, err := generate.Run(ctx, table, outputDir, chunkSize)
		if err != nil {
			return eris.Wrap(err, "generate: run")
		}

		zap.L().Info("generate: complete",
			zap.Int("rows", stats.Rows),
			zap.Int("files", stats.Files),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Fprintf(os.Stdout, "wrote %d arrays across %d files in %s\n", stats.Rows, stats.Files, outputDir)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateTable, "table", "", "parameter table file (.yaml or .xlsx), empty uses the built-in table")
	generateCmd.Flags().StringVar(&generateOutputDir, "output-dir", "", "directory for CSV chunks (default from config)")
	generateCmd.Flags().IntVar(&generateChunkSize, "chunk-size", 0, "rows per CSV chunk (default from config)")
	rootCmd.AddCommand(generateCmd)
}
