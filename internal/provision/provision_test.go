package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gc-monitoring/sensor-installer/internal/config"
)

// testConfig builds a configuration rooted in a temp directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	return &config.Config{
		APIKey:           "secret-key",
		EnvironmentName:  "staging",
		BackendDomain:    "backend.example.com",
		InstallDir:       filepath.Join(dir, "install"),
		EnvironmentDir:   filepath.Join(dir, "env"),
		SensorName:       "gc-sensor",
		ServiceName:      "gc-sensor.service",
		EnvFilePath:      filepath.Join(dir, "env", "gc-sensor.env"),
		OverrideFilePath: filepath.Join(dir, "env", "overrides.yaml"),
		MaxParallelism:   4,
		MemorySoftLimit:  "512M",
		MemoryHardLimit:  "1G",
	}
}

// TestRenderUnit checks the descriptor carries the executable, environment
// file, memory ceiling and restart policy.
func TestRenderUnit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	rendered, err := RenderUnit(cfg)
	require.NoError(t, err)

	text := string(rendered)
	require.Contains(t, text, "ExecStart="+cfg.BinaryPath())
	require.Contains(t, text, "WorkingDirectory="+cfg.InstallDir)
	require.Contains(t, text, "EnvironmentFile="+cfg.EnvFilePath)
	require.Contains(t, text, "MemoryMax=1G")
	require.Contains(t, text, "Type=simple")
	require.Contains(t, text, "Restart=on-failure")
	require.Contains(t, text, "WantedBy=multi-user.target")
}

// TestWriteEnvironmentFile verifies content and owner-only permissions.
func TestWriteEnvironmentFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.EnvironmentDir, 0o755))

	require.NoError(t, WriteEnvironmentFile(context.Background(), cfg))

	contents, err := os.ReadFile(cfg.EnvFilePath)
	require.NoError(t, err)

	text := string(contents)
	require.Contains(t, text, "GC_API_KEY=secret-key\n")
	require.Contains(t, text, "GC_ENV_NAME=staging\n")
	require.Contains(t, text, "GC_OVERRIDE_FILE="+cfg.OverrideFilePath+"\n")
	require.Contains(t, text, "GC_MAX_PARALLELISM=4\n")
	require.Contains(t, text, "GC_MEMORY_SOFT_LIMIT=512M\n")

	info, err := os.Stat(cfg.EnvFilePath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestEnsureOverrideFile_CreatesOnce asserts the override file is created
// with the header and left byte-for-byte unchanged on the next run.
func TestEnsureOverrideFile_CreatesOnce(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx := context.Background()

	require.NoError(t, EnsureOverrideFile(ctx, cfg))

	info, err := os.Stat(cfg.OverrideFilePath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Simulate an operator edit, then a reinstall.
	edited := []byte("# edited\nsampling_rate: 0.5\n")
	require.NoError(t, os.WriteFile(cfg.OverrideFilePath, edited, 0o600))

	require.NoError(t, EnsureOverrideFile(ctx, cfg))

	contents, err := os.ReadFile(cfg.OverrideFilePath)
	require.NoError(t, err)
	require.Equal(t, edited, contents)
}

// TestWriteEnvironmentFile_Regenerates confirms the env file is rewritten
// from scratch while the override file survives.
func TestWriteEnvironmentFile_Regenerates(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(cfg.EnvironmentDir, 0o755))

	require.NoError(t, os.WriteFile(cfg.EnvFilePath, []byte("STALE=1\n"), 0o600))
	require.NoError(t, WriteEnvironmentFile(ctx, cfg))

	contents, err := os.ReadFile(cfg.EnvFilePath)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "STALE")
}
