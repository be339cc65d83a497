// Package generate expands a parameter table into chunked candidate CSV
// files.
package generate

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ChunkPattern names the candidate chunk files, 1-based.
const ChunkPattern = "all_unique_arrays_%d.csv"

// Stats summarizes one generation run.
type Stats struct {
	Files int `json:"files"`
	Rows  int `json:"rows"`
}

// Run enumerates every candidate array of the table in deterministic order
// and writes them as CSV rows into chunk files of at most chunkSize rows
// under outputDir. The enumeration order is the cartesian product of
// per-group permutations, outermost group first, each permutation sequence
// in lexicographic order of the alphabet as given.
func Run(ctx context.Context, table Table, outputDir string, chunkSize int) (*Stats, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		return nil, eris.Errorf("generate: chunk size %d must be positive", chunkSize)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "generate: create %s", outputDir)
	}

	zap.L().Info("generate: starting",
		zap.Int("total", table.Count()),
		zap.Int("chunk_size", chunkSize),
		zap.String("output_dir", outputDir),
	)

	perms := permutations(table.Alphabet)
	w := newChunkWriter(outputDir, chunkSize)

	// Odometer over the per-group permutation choices, leftmost group
	// slowest, matching the original enumeration order.
	choice := make([]int, len(table.Groups))
	row := make([]string, table.Width())
	for {
		if err := ctx.Err(); err != nil {
			_ = w.close()
			return nil, eris.Wrap(err, "generate: cancelled")
		}

		for g, group := range table.Groups {
			perm := perms[choice[g]]
			for i, slot := range group {
				row[slot] = perm[i]
			}
		}
		if err := w.write(row); err != nil {
			_ = w.close()
			return nil, err
		}

		// Advance the odometer; rightmost group fastest.
		g := len(choice) - 1
		for g >= 0 {
			choice[g]++
			if choice[g] < len(perms) {
				break
			}
			choice[g] = 0
			g--
		}
		if g < 0 {
			break
		}
	}

	if err := w.close(); err != nil {
		return nil, err
	}

	stats := &Stats{Files: w.fileCount, Rows: w.rowCount}
	zap.L().Info("generate: complete",
		zap.Int("files", stats.Files),
		zap.Int("rows", stats.Rows),
	)
	return stats, nil
}

// permutations returns every permutation of symbols in lexicographic order
// of the input positions.
func permutations(symbols []string) [][]string {
	var out [][]string
	cur := make([]string, 0, len(symbols))
	used := make([]bool, len(symbols))

	var walk func()
	walk = func() {
		if len(cur) == len(symbols) {
			perm := make([]string, len(cur))
			copy(perm, cur)
			out = append(out, perm)
			return
		}
		for i, s := range symbols {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, s)
			walk()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	walk()
	return out
}

// chunkWriter spreads CSV rows across numbered chunk files.
type chunkWriter struct {
	dir       string
	chunkSize int

	f         *os.File
	w         *csv.Writer
	fileCount int
	rowCount  int
	inChunk   int
}

func newChunkWriter(dir string, chunkSize int) *chunkWriter {
	return &chunkWriter{dir: dir, chunkSize: chunkSize}
}

func (c *chunkWriter) write(row []string) error {
	if c.f == nil || c.inChunk >= c.chunkSize {
		if err := c.roll(); err != nil {
			return err
		}
	}
	if err := c.w.Write(row); err != nil {
		return eris.Wrap(err, "generate: write row")
	}
	c.inChunk++
	c.rowCount++
	return nil
}

// roll closes the current chunk (if any) and opens the next one.
func (c *chunkWriter) roll() error {
	if err := c.close(); err != nil {
		return err
	}

	c.fileCount++
	path := filepath.Join(c.dir, fmt.Sprintf(ChunkPattern, c.fileCount))
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "generate: create %s", path)
	}
	c.f = f
	c.w = csv.NewWriter(f)
	c.inChunk = 0
	return nil
}

func (c *chunkWriter) close() error {
	if c.f == nil {
		return nil
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		c.f = nil
		return eris.Wrap(err, "generate: flush chunk")
	}
	err := c.f.Close()
	c.f = nil
	return eris.Wrap(err, "generate: close chunk")
}
