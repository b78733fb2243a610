package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setRequired populates the three mandatory variables for the current test.
func setRequired(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAPIKey, "test-key")
	t.Setenv(EnvEnvironmentName, "staging")
	t.Setenv(EnvBackendDomain, "backend.example.com")
}

// TestFromEnv_MissingRequired asserts every required variable is enforced
// and the failing variable is named in the error.
func TestFromEnv_MissingRequired(t *testing.T) {
	for _, missing := range RequiredVariables() {
		setRequired(t)
		t.Setenv(missing, "")

		cfg, err := FromEnv()
		require.Nil(t, cfg)
		require.ErrorIs(t, err, ErrMissingConfiguration)
		require.ErrorContains(t, err, missing)
	}
}

// TestFromEnv_Defaults checks derived defaults for an untouched environment.
func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	require.Equal(t, DefaultInstallDir, cfg.InstallDir)
	require.Equal(t, DefaultServiceName, cfg.ServiceName)
	require.Equal(t, filepath.Join(DefaultEnvironmentDir, DefaultSensorName+".env"), cfg.EnvFilePath)
	require.Equal(t, filepath.Join(DefaultEnvironmentDir, "overrides.yaml"), cfg.OverrideFilePath)
	require.Positive(t, cfg.MaxParallelism)
	require.LessOrEqual(t, cfg.MaxParallelism, 8)
}

// TestFromEnv_Overrides checks that optional variables take precedence over defaults.
func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvInstallDir, "/srv/sensor")
	t.Setenv(EnvEnvFilePath, "/srv/sensor.env")
	t.Setenv(EnvMaxParallelism, "3")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "/srv/sensor", cfg.InstallDir)
	require.Equal(t, "/srv/sensor.env", cfg.EnvFilePath)
	require.Equal(t, 3, cfg.MaxParallelism)
}

// TestFromEnv_InvalidParallelism rejects non-numeric and non-positive overrides.
func TestFromEnv_InvalidParallelism(t *testing.T) {
	for _, bad := range []string{"zero", "-1", "0", "1.5"} {
		setRequired(t)
		t.Setenv(EnvMaxParallelism, bad)

		_, err := FromEnv()
		require.Error(t, err)
	}
}

// TestBackendBaseURL verifies scheme normalization of the backend domain.
func TestBackendBaseURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{BackendDomain: "backend.example.com"}
	require.Equal(t, "https://backend.example.com", cfg.BackendBaseURL())

	cfg = &Config{BackendDomain: "http://localhost:8080/"}
	require.Equal(t, "http://localhost:8080", cfg.BackendBaseURL())
}

// TestDerivedPaths spot-checks path helpers built from the configuration.
func TestDerivedPaths(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		InstallDir:  "/opt/gc-sensor",
		SensorName:  "gc-sensor",
		ServiceName: "gc-sensor.service",
	}

	require.Equal(t, "/opt/gc-sensor/bin/gc-sensor", cfg.BinaryPath())
	require.Equal(t, "/opt/gc-sensor/config/sensor.yaml", cfg.GeneralConfigPath())
	require.Equal(t, "/etc/systemd/system/gc-sensor.service", cfg.UnitFilePath())
}
