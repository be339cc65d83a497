package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "keysearch.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 30, cfg.Oracle.TimeoutSecs)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout())
	assert.Zero(t, cfg.Oracle.RatePerSec)
	assert.Equal(t, "checksums.txt", cfg.Verify.Report)
	assert.Equal(t, ".", cfg.Verify.CheckpointDir)
	assert.Equal(t, "result.txt", cfg.Verify.ResultPath)
	assert.Equal(t, "output_chunks", cfg.Generate.OutputDir)
	assert.Equal(t, 50000, cfg.Generate.ChunkSize)
	assert.Equal(t, "output_chunks", cfg.Fingerprint.Dir)
	assert.Equal(t, 4, cfg.Fingerprint.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
oracle:
  endpoint: https://oracle.example.com/verify
  timeout_secs: 10
  rate_per_sec: 2.5
verify:
  report: reports/hashes.txt
  checkpoint_dir: state
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://oracle.example.com/verify", cfg.Oracle.Endpoint)
	assert.Equal(t, 10, cfg.Oracle.TimeoutSecs)
	assert.InDelta(t, 2.5, cfg.Oracle.RatePerSec, 0.001)
	assert.Equal(t, "reports/hashes.txt", cfg.Verify.Report)
	assert.Equal(t, "state", cfg.Verify.CheckpointDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "result.txt", cfg.Verify.ResultPath)
	assert.Equal(t, 50000, cfg.Generate.ChunkSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
oracle:
  endpoint: https://file.example.com/verify
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("KEYSEARCH_ORACLE_ENDPOINT", "https://env.example.com/verify")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/verify", cfg.Oracle.Endpoint)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0644))

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
}
