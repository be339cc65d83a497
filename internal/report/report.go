// Package report parses the flat checksum report produced by the
// fingerprint step into an ordered candidate sequence.
package report

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/keysearch-cli/internal/model"
)

// Delimiter separates the two report fields: label,fingerprint.
const Delimiter = ","

// Filter reports whether a fingerprint has already been attempted and must
// be excluded from the candidate sequence.
type Filter interface {
	Contains(fp model.Fingerprint) bool
}

// Parse reads the report at path and returns the parsed records in file
// order. Lines that do not split into exactly two non-empty fields are
// skipped; a report file that does not exist is a fatal error for the run.
func Parse(path string) ([]model.CandidateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		// Propagates os.ErrNotExist so callers can distinguish a missing
		// report from other read failures.
		return nil, eris.Wrapf(err, "report: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var records []model.CandidateRecord
	skipped := 0

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, Delimiter)
		if len(fields) != 2 {
			skipped++
			continue
		}
		label := strings.TrimSpace(fields[0])
		fp := strings.TrimSpace(fields[1])
		if label == "" || fp == "" {
			skipped++
			continue
		}

		records = append(records, model.CandidateRecord{
			Label:       label,
			Fingerprint: model.Fingerprint(fp),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}

	if skipped > 0 {
		zap.L().Debug("report: skipped malformed lines",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return records, nil
}

// Candidates parses the report at path and drops every fingerprint already
// present in the filter, preserving source order for the rest.
func Candidates(path string, filter Filter) ([]model.Fingerprint, error) {
	records, err := Parse(path)
	if err != nil {
		return nil, err
	}

	var fps []model.Fingerprint
	for _, rec := range records {
		if filter != nil && filter.Contains(rec.Fingerprint) {
			continue
		}
		fps = append(fps, rec.Fingerprint)
	}
	return fps, nil
}
