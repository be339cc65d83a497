// Package fingerprint hashes candidate files into the flat checksum report
// consumed by the verification pipeline.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/keysearch-cli/internal/model"
	"github.com/sells-group/keysearch-cli/internal/report"
)

// HashDir computes the SHA-256 digest of every regular file directly under
// dir and returns one record per file. Hashing runs concurrently up to the
// given limit, but the returned records are ordered by file name so the
// report is deterministic.
func HashDir(ctx context.Context, dir string, concurrency int) ([]model.CandidateRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "fingerprint: read %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if concurrency <= 0 {
		concurrency = 1
	}

	records := make([]model.CandidateRecord, len(names))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, name := range names {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			digest, hashErr := hashFile(filepath.Join(dir, name))
			if hashErr != nil {
				return hashErr
			}
			records[i] = model.CandidateRecord{
				Label:       name,
				Fingerprint: digest,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("fingerprint: hashed directory",
		zap.String("dir", dir),
		zap.Int("files", len(records)),
	)
	return records, nil
}

// WriteReport writes records to path in the report format, one
// label,fingerprint line per record.
func WriteReport(path string, records []model.CandidateRecord) error {
	var sb strings.Builder
	for _, rec := range records {
		sb.WriteString(rec.Label)
		sb.WriteString(report.Delimiter)
		sb.WriteString(string(rec.Fingerprint))
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return eris.Wrapf(err, "fingerprint: write report %s", path)
	}
	return nil
}

func hashFile(path string) (model.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "fingerprint: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "fingerprint: hash %s", path)
	}
	return model.Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
