package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Names of environment variables consumed by the installer.
// Required variables have no default; the install aborts when one is unset.
const (
	// EnvAPIKey authenticates the sensor against the backend.
	EnvAPIKey = "GC_API_KEY"
	// EnvEnvironmentName labels the monitored environment (e.g. "production").
	EnvEnvironmentName = "GC_ENV_NAME"
	// EnvBackendDomain is the backend the sensor reports to.
	EnvBackendDomain = "GC_DOMAIN"

	// EnvInstallDir overrides the installation directory.
	EnvInstallDir = "GC_INSTALL_DIR"
	// EnvEnvironmentDir overrides the directory holding generated env files.
	EnvEnvironmentDir = "GC_ENV_DIR"
	// EnvSensorName overrides the sensor binary name.
	EnvSensorName = "GC_SENSOR_NAME"
	// EnvTarballName overrides the local release artifact filename.
	EnvTarballName = "GC_TARBALL_NAME"
	// EnvServiceName overrides the systemd unit name.
	EnvServiceName = "GC_SERVICE_NAME"
	// EnvEnvFilePath overrides the generated environment file path.
	EnvEnvFilePath = "GC_ENV_FILE"
	// EnvOverrideFilePath overrides the user override file path.
	EnvOverrideFilePath = "GC_OVERRIDE_FILE"
	// EnvReleaseURLPrefix overrides the release download URL prefix.
	EnvReleaseURLPrefix = "GC_RELEASE_URL_PREFIX"
	// EnvMaxParallelism overrides the sensor worker parallelism.
	EnvMaxParallelism = "GC_MAX_PARALLELISM"
	// EnvMemorySoftLimit overrides the sensor soft memory limit.
	EnvMemorySoftLimit = "GC_MEMORY_SOFT_LIMIT"
	// EnvMemoryHardLimit overrides the sensor hard memory limit.
	EnvMemoryHardLimit = "GC_MEMORY_HARD_LIMIT"
)

const (
	// DefaultInstallDir is where the release tarball is extracted.
	DefaultInstallDir = "/opt/gc-sensor"

	// DefaultEnvironmentDir holds the generated environment and override files.
	DefaultEnvironmentDir = "/etc/gc-sensor"

	// DefaultSensorName is the sensor executable name inside the package.
	DefaultSensorName = "gc-sensor"

	// DefaultTarballName is the local filename the release artifact is saved under.
	DefaultTarballName = "gc-sensor.tar.gz"

	// DefaultServiceName is the systemd unit name the sensor runs under.
	DefaultServiceName = "gc-sensor.service"

	// DefaultReleaseURLPrefix is completed with "-<arch>" to form the download URL.
	DefaultReleaseURLPrefix = "https://releases.gc-monitoring.io/sensor/latest/gc-sensor-linux"

	// DefaultMemorySoftLimit is the sensor's default soft memory limit.
	DefaultMemorySoftLimit = "512M"

	// DefaultMemoryHardLimit is the sensor's default hard memory limit,
	// enforced as the unit's memory ceiling.
	DefaultMemoryHardLimit = "1G"

	// DefaultFilePermissions restricts generated secret-bearing files to the owner.
	DefaultFilePermissions os.FileMode = 0o600

	// SystemdUnitDir is the standard system unit directory.
	SystemdUnitDir = "/etc/systemd/system"

	// maxDefaultParallelism caps the derived parallelism on large hosts.
	maxDefaultParallelism = 8
)

// ErrMissingConfiguration is returned when a required variable is unset or empty.
var ErrMissingConfiguration = errors.New("required configuration variable is not set")

// errInvalidParallelism is returned when the parallelism override is not a positive integer.
var errInvalidParallelism = errors.New("parallelism must be a positive integer")

// Config holds every value the installer needs, resolved once from the
// environment before any network or filesystem mutation. Components receive
// it explicitly instead of reading ambient environment state.
type Config struct {
	// APIKey authenticates requests against the backend.
	APIKey string
	// EnvironmentName labels the monitored environment.
	EnvironmentName string
	// BackendDomain is the backend host, with or without a scheme.
	BackendDomain string
	// InstallDir is the directory the release is extracted into.
	InstallDir string
	// EnvironmentDir holds the generated environment and override files.
	EnvironmentDir string
	// SensorName is the sensor executable name.
	SensorName string
	// TarballName is the local release artifact filename.
	TarballName string
	// ServiceName is the systemd unit name.
	ServiceName string
	// EnvFilePath is the generated environment file consumed by systemd.
	EnvFilePath string
	// OverrideFilePath is the user-editable override file, preserved across reinstalls.
	OverrideFilePath string
	// ReleaseURLPrefix is completed with "-<arch>" to form the download URL.
	ReleaseURLPrefix string
	// MaxParallelism is the sensor worker parallelism written to the env file.
	MaxParallelism int
	// MemorySoftLimit is the sensor's soft memory limit.
	MemorySoftLimit string
	// MemoryHardLimit is the sensor's hard memory limit and unit memory ceiling.
	MemoryHardLimit string
}

// RequiredVariables lists the environment variables that must be set
// before an install may proceed.
func RequiredVariables() []string {
	return []string{EnvAPIKey, EnvEnvironmentName, EnvBackendDomain}
}

// FromEnv validates required variables and builds the configuration,
// applying defaults for everything the invoker did not override.
// It performs no side effects.
func FromEnv() (*Config, error) {
	for _, name := range RequiredVariables() {
		if value := strings.TrimSpace(os.Getenv(name)); value == "" {
			return nil, fmt.Errorf("%s: %w", name, ErrMissingConfiguration)
		}
	}

	return build()
}

// PathsFromEnv builds the configuration without enforcing the required
// install variables. Uninstall only needs the derived paths and names, which
// must honor the same overrides the install was given.
func PathsFromEnv() (*Config, error) {
	return build()
}

func build() (*Config, error) {
	cfg := &Config{
		APIKey:           os.Getenv(EnvAPIKey),
		EnvironmentName:  os.Getenv(EnvEnvironmentName),
		BackendDomain:    os.Getenv(EnvBackendDomain),
		InstallDir:       envOrDefault(EnvInstallDir, DefaultInstallDir),
		EnvironmentDir:   envOrDefault(EnvEnvironmentDir, DefaultEnvironmentDir),
		SensorName:       envOrDefault(EnvSensorName, DefaultSensorName),
		TarballName:      envOrDefault(EnvTarballName, DefaultTarballName),
		ServiceName:      envOrDefault(EnvServiceName, DefaultServiceName),
		ReleaseURLPrefix: envOrDefault(EnvReleaseURLPrefix, DefaultReleaseURLPrefix),
		MemorySoftLimit:  envOrDefault(EnvMemorySoftLimit, DefaultMemorySoftLimit),
		MemoryHardLimit:  envOrDefault(EnvMemoryHardLimit, DefaultMemoryHardLimit),
	}

	cfg.EnvFilePath = envOrDefault(EnvEnvFilePath, filepath.Join(cfg.EnvironmentDir, cfg.SensorName+".env"))
	cfg.OverrideFilePath = envOrDefault(EnvOverrideFilePath, filepath.Join(cfg.EnvironmentDir, "overrides.yaml"))

	parallelism, err := resolveParallelism(os.Getenv(EnvMaxParallelism))
	if err != nil {
		return nil, err
	}

	cfg.MaxParallelism = parallelism

	return cfg, nil
}

// resolveParallelism parses the override or derives a default from the host CPU count.
func resolveParallelism(override string) (int, error) {
	if override = strings.TrimSpace(override); override != "" {
		value, err := strconv.Atoi(override)
		if err != nil || value <= 0 {
			return 0, fmt.Errorf("%s=%q: %w", EnvMaxParallelism, override, errInvalidParallelism)
		}

		return value, nil
	}

	cpus := runtime.NumCPU()
	if cpus > maxDefaultParallelism {
		return maxDefaultParallelism, nil
	}

	return cpus, nil
}

// BackendBaseURL returns the backend domain as a URL,
// prepending https:// when the domain carries no scheme.
func (c *Config) BackendBaseURL() string {
	domain := strings.TrimRight(c.BackendDomain, "/")
	if strings.Contains(domain, "://") {
		return domain
	}

	return "https://" + domain
}

// TarballPath is the local path the release artifact is downloaded to.
func (c *Config) TarballPath() string {
	return filepath.Join(os.TempDir(), c.TarballName)
}

// BinaryPath is the sensor executable inside the installation tree.
func (c *Config) BinaryPath() string {
	return filepath.Join(c.InstallDir, "bin", c.SensorName)
}

// ConfigDir is the configuration tree inside the installation directory.
func (c *Config) ConfigDir() string {
	return filepath.Join(c.InstallDir, "config")
}

// GeneralConfigPath is the sensor's main configuration file.
func (c *Config) GeneralConfigPath() string {
	return filepath.Join(c.ConfigDir(), "sensor.yaml")
}

// ScrapeConfigGlob matches the shipped scrape configuration files.
func (c *Config) ScrapeConfigGlob() string {
	return filepath.Join(c.ConfigDir(), "scrape.d", "*.yaml")
}

// UnitFilePath is where the systemd unit file is written.
func (c *Config) UnitFilePath() string {
	return filepath.Join(SystemdUnitDir, c.ServiceName)
}

// envOrDefault returns the trimmed variable value or fallback when unset/empty.
func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}

	return fallback
}
