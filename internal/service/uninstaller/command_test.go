package uninstaller

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gc-monitoring/sensor-installer/internal/config"
)

// fakeManager is an in-memory systemd.Manager implementation for tests.
type fakeManager struct {
	calls   []string
	active  bool
	enabled bool
}

func (f *fakeManager) DaemonReload(context.Context) error {
	f.calls = append(f.calls, "daemon-reload")
	return nil
}

func (f *fakeManager) Enable(_ context.Context, unit string) error {
	f.calls = append(f.calls, "enable "+unit)
	return nil
}

func (f *fakeManager) Disable(_ context.Context, unit string) error {
	f.calls = append(f.calls, "disable "+unit)
	return nil
}

func (f *fakeManager) Start(_ context.Context, unit string) error {
	f.calls = append(f.calls, "start "+unit)
	return nil
}

func (f *fakeManager) Stop(_ context.Context, unit string) error {
	f.calls = append(f.calls, "stop "+unit)
	return nil
}

func (f *fakeManager) IsActive(context.Context, string) (bool, error) {
	return f.active, nil
}

func (f *fakeManager) IsEnabled(context.Context, string) (bool, error) {
	return f.enabled, nil
}

func (f *fakeManager) RecentLogs(context.Context, string, int) (string, error) {
	return "", nil
}

// TestUninstall_FullTeardown stops, disables, removes the unit file and the
// installation directory.
func TestUninstall_FullTeardown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unitPath := filepath.Join(dir, "gc-sensor.service")
	installDir := filepath.Join(dir, "install")

	require.NoError(t, os.WriteFile(unitPath, []byte("[Unit]\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "bin"), 0o755))

	manager := &fakeManager{active: true, enabled: true}
	cfg := &config.Config{
		ServiceName: "gc-sensor.service",
		InstallDir:  installDir,
	}

	require.NoError(t, uninstall(context.Background(), manager, cfg, unitPath))
	require.Equal(t, []string{
		"stop gc-sensor.service",
		"disable gc-sensor.service",
		"daemon-reload",
	}, manager.calls)

	_, err := os.Stat(unitPath)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(installDir)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestUninstall_NothingInstalled succeeds without touching the init system
// when no service, unit file or directory exists.
func TestUninstall_NothingInstalled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manager := &fakeManager{}
	cfg := &config.Config{
		ServiceName: "gc-sensor.service",
		InstallDir:  filepath.Join(dir, "never-created"),
	}

	err := uninstall(context.Background(), manager, cfg, filepath.Join(dir, "missing.service"))
	require.NoError(t, err)
	require.Empty(t, manager.calls)
}

// TestUninstall_StoppedButEnabled only disables when the unit is inactive
// yet still enabled.
func TestUninstall_StoppedButEnabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manager := &fakeManager{enabled: true}
	cfg := &config.Config{
		ServiceName: "gc-sensor.service",
		InstallDir:  filepath.Join(dir, "never-created"),
	}

	err := uninstall(context.Background(), manager, cfg, filepath.Join(dir, "missing.service"))
	require.NoError(t, err)
	require.Equal(t, []string{"disable gc-sensor.service"}, manager.calls)
}
