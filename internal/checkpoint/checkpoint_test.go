package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keysearch-cli/internal/model"
)

func TestLoad_MissingFilesStartEmpty(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(dir)
	require.NoError(t, err)
	defer l.Close()

	assert.Zero(t, l.ProcessedCount())
	assert.Zero(t, l.FailedCount())
	assert.False(t, l.Contains("a1"))
}

func TestLoad_ExistingLogs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProcessedFile), []byte("a1\na2\n\n  \n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FailedFile), []byte("b1\n"), 0o644))

	l, err := Load(dir)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, 2, l.ProcessedCount())
	assert.Equal(t, 1, l.FailedCount())
	assert.True(t, l.Contains("a1"))
	assert.True(t, l.Contains("a2"))
	assert.True(t, l.Contains("b1"))
	assert.False(t, l.Contains("c1"))
}

func TestAdd_AppendsToDiskAndMemory(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, l.AddProcessed("a1"))
	require.NoError(t, l.AddFailed("b1"))
	require.NoError(t, l.Close())

	processed, err := os.ReadFile(filepath.Join(dir, ProcessedFile))
	require.NoError(t, err)
	assert.Equal(t, "a1\n", string(processed))

	failed, err := os.ReadFile(filepath.Join(dir, FailedFile))
	require.NoError(t, err)
	assert.Equal(t, "b1\n", string(failed))
}

func TestAdd_Idempotent(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, l.AddProcessed("a1"))
	require.NoError(t, l.AddProcessed("a1"))
	require.NoError(t, l.Close())

	processed, err := os.ReadFile(filepath.Join(dir, ProcessedFile))
	require.NoError(t, err)
	assert.Equal(t, "a1\n", string(processed))
}

func TestLoad_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, l.AddProcessed("b1"))
	require.NoError(t, l.AddFailed("x1"))
	require.NoError(t, l.Close())

	// Fresh ledger over the same directory sees both entries.
	l2, err := Load(dir)
	require.NoError(t, err)
	defer l2.Close()

	assert.True(t, l2.Contains("b1"))
	assert.True(t, l2.Contains("x1"))

	// Duplicate physical lines from an earlier crash are deduped in memory.
	require.NoError(t, l2.AddFailed("x1"))
	assert.Equal(t, 1, l2.FailedCount())
}

func TestLoad_DuplicateLinesCountOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FailedFile), []byte("x1\nx1\nx1\n"), 0o644))

	l, err := Load(dir)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, 1, l.FailedCount())
}

func TestContains_ChecksBothSets(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(dir)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.AddProcessed(model.Fingerprint("p")))
	require.NoError(t, l.AddFailed(model.Fingerprint("f")))

	assert.True(t, l.Contains("p"))
	assert.True(t, l.Contains("f"))
}
