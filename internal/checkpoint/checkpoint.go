// Package checkpoint persists the set of fingerprints already attempted so
// an interrupted verification run can resume without re-submitting work.
package checkpoint

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/keysearch-cli/internal/model"
)

const (
	// ProcessedFile holds fingerprints whose comparison completed without a match.
	ProcessedFile = "processed.txt"
	// FailedFile holds fingerprints whose verification hit a transient failure.
	// Operators can delete it between runs to force those fingerprints to be
	// re-attempted.
	FailedFile = "failed.txt"
)

// Ledger owns the two append-only checkpoint logs. A fingerprint present in
// either set is never resubmitted by a later run. Membership, not line
// count, is what matters: duplicate physical lines are harmless.
//
// The ledger is written from a single goroutine; it does no locking of its
// own.
type Ledger struct {
	processed map[model.Fingerprint]struct{}
	failed    map[model.Fingerprint]struct{}

	processedLog *appendLog
	failedLog    *appendLog
}

// Load opens the checkpoint logs under dir, reading any existing entries
// into memory. Missing log files start as empty sets.
func Load(dir string) (*Ledger, error) {
	l := &Ledger{
		processed: make(map[model.Fingerprint]struct{}),
		failed:    make(map[model.Fingerprint]struct{}),
	}

	var err error
	if l.processedLog, err = openAppendLog(filepath.Join(dir, ProcessedFile), l.processed); err != nil {
		return nil, eris.Wrap(err, "checkpoint: open processed log")
	}
	if l.failedLog, err = openAppendLog(filepath.Join(dir, FailedFile), l.failed); err != nil {
		_ = l.processedLog.Close()
		return nil, eris.Wrap(err, "checkpoint: open failed log")
	}

	return l, nil
}

// Contains reports whether fp has already been attempted, in either set.
func (l *Ledger) Contains(fp model.Fingerprint) bool {
	if _, ok := l.processed[fp]; ok {
		return true
	}
	_, ok := l.failed[fp]
	return ok
}

// AddProcessed durably records fp as compared-and-not-matched.
func (l *Ledger) AddProcessed(fp model.Fingerprint) error {
	if _, ok := l.processed[fp]; ok {
		return nil
	}
	if err := l.processedLog.Append(string(fp)); err != nil {
		return eris.Wrap(err, "checkpoint: append processed")
	}
	l.processed[fp] = struct{}{}
	return nil
}

// AddFailed durably records fp as attempted-but-not-completed.
func (l *Ledger) AddFailed(fp model.Fingerprint) error {
	if _, ok := l.failed[fp]; ok {
		return nil
	}
	if err := l.failedLog.Append(string(fp)); err != nil {
		return eris.Wrap(err, "checkpoint: append failed")
	}
	l.failed[fp] = struct{}{}
	return nil
}

// ProcessedCount returns the number of distinct processed fingerprints.
func (l *Ledger) ProcessedCount() int { return len(l.processed) }

// FailedCount returns the number of distinct failed fingerprints.
func (l *Ledger) FailedCount() int { return len(l.failed) }

// Close closes both underlying log files.
func (l *Ledger) Close() error {
	err1 := l.processedLog.Close()
	err2 := l.failedLog.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// appendLog is a line-per-entry log file. The file stays open for the life
// of the ledger; Append syncs after every write so a crash immediately
// afterwards cannot lose the record.
type appendLog struct {
	f *os.File
}

func openAppendLog(path string, into map[model.Fingerprint]struct{}) (*appendLog, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		into[model.Fingerprint(line)] = struct{}{}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s for append", path)
	}
	return &appendLog{f: f}, nil
}

func (a *appendLog) Append(line string) error {
	if _, err := a.f.WriteString(line + "\n"); err != nil {
		return err
	}
	return a.f.Sync()
}

func (a *appendLog) Close() error {
	return a.f.Close()
}
