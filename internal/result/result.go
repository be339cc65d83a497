// Package result persists the verified match artifact.
package result

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/keysearch-cli/internal/model"
)

// Write persists the verified match to path as exactly two lines:
//
//	checksum: <fingerprint>
//	key: <key>
//
// Any prior content is replaced; a run produces at most one result, so
// last-write-wins is acceptable.
func Write(path string, match model.VerifiedMatch) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "result: create %s", path)
	}

	content := fmt.Sprintf("checksum: %s\nkey: %s\n", match.Fingerprint, match.Key)
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "result: write %s", path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "result: sync %s", path)
	}
	return eris.Wrapf(f.Close(), "result: close %s", path)
}
