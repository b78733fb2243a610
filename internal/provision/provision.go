package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/gc-monitoring/sensor-installer/internal/config"
	"github.com/gc-monitoring/sensor-installer/internal/logger"
)

const (
	// restartDelay is how long systemd waits before restarting a failed sensor.
	restartDelay = "5s"

	// environmentDirMode is used for the directory holding generated files.
	environmentDirMode os.FileMode = 0o755

	// overrideFileHeader is the only content a fresh override file gets.
	overrideFileHeader = "# Sensor configuration overrides. This file is never rewritten by the installer.\n"
)

// Apply renders all provisioning artifacts: the systemd unit file, the
// environment file, and (once) the user override file.
func Apply(ctx context.Context, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.EnvironmentDir, environmentDirMode); err != nil {
		return fmt.Errorf("create environment directory: %w", err)
	}

	if err := EnsureOverrideFile(ctx, cfg); err != nil {
		return err
	}

	if err := WriteEnvironmentFile(ctx, cfg); err != nil {
		return err
	}

	return WriteUnitFile(ctx, cfg)
}

// RenderUnit serializes the sensor's service unit descriptor.
func RenderUnit(cfg *config.Config) ([]byte, error) {
	options := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "GC monitoring sensor"),
		unit.NewUnitOption("Unit", "After", "network-online.target"),
		unit.NewUnitOption("Unit", "Wants", "network-online.target"),
		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "ExecStart", cfg.BinaryPath()),
		unit.NewUnitOption("Service", "WorkingDirectory", cfg.InstallDir),
		unit.NewUnitOption("Service", "EnvironmentFile", cfg.EnvFilePath),
		unit.NewUnitOption("Service", "MemoryMax", cfg.MemoryHardLimit),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "RestartSec", restartDelay),
		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}

	rendered, err := io.ReadAll(unit.Serialize(options))
	if err != nil {
		return nil, fmt.Errorf("serialize unit: %w", err)
	}

	return rendered, nil
}

// WriteUnitFile regenerates the unit descriptor from scratch on every install.
func WriteUnitFile(ctx context.Context, cfg *config.Config) error {
	rendered, err := RenderUnit(cfg)
	if err != nil {
		return err
	}

	unitPath := cfg.UnitFilePath()
	if err = os.WriteFile(unitPath, rendered, 0o644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	logger.InfoKV(ctx, "Wrote service unit", "path", unitPath)

	return nil
}

// WriteEnvironmentFile regenerates the service environment file from scratch.
// It contains the API key, so it is owner-only.
func WriteEnvironmentFile(ctx context.Context, cfg *config.Config) error {
	var b strings.Builder

	// Invoker-supplied identity.
	writeEnvLine(&b, config.EnvAPIKey, cfg.APIKey)
	writeEnvLine(&b, config.EnvEnvironmentName, cfg.EnvironmentName)
	writeEnvLine(&b, config.EnvBackendDomain, cfg.BackendDomain)
	writeEnvLine(&b, config.EnvOverrideFilePath, cfg.OverrideFilePath)

	// Fixed feature toggles.
	writeEnvLine(&b, "GC_EBPF_ENABLED", "true")
	writeEnvLine(&b, "GC_AUTO_UPDATE", "false")

	// Derived runtime tuning.
	writeEnvLine(&b, config.EnvMaxParallelism, fmt.Sprintf("%d", cfg.MaxParallelism))
	writeEnvLine(&b, config.EnvMemorySoftLimit, cfg.MemorySoftLimit)
	writeEnvLine(&b, config.EnvMemoryHardLimit, cfg.MemoryHardLimit)

	if err := os.WriteFile(cfg.EnvFilePath, []byte(b.String()), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write environment file: %w", err)
	}

	logger.InfoKV(ctx, "Wrote service environment file", "path", cfg.EnvFilePath)

	return nil
}

// EnsureOverrideFile creates the user override file once and never touches it
// again, preserving operator edits across reinstalls.
func EnsureOverrideFile(ctx context.Context, cfg *config.Config) error {
	if _, err := os.Stat(cfg.OverrideFilePath); err == nil {
		logger.Debugf(ctx, "Override file %s already exists, keeping it", cfg.OverrideFilePath)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat override file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OverrideFilePath), environmentDirMode); err != nil {
		return fmt.Errorf("create override directory: %w", err)
	}

	if err := os.WriteFile(cfg.OverrideFilePath, []byte(overrideFileHeader), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write override file: %w", err)
	}

	logger.InfoKV(ctx, "Created override file", "path", cfg.OverrideFilePath)

	return nil
}

// writeEnvLine appends one KEY=value line to the environment file body.
func writeEnvLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte('\n')
}
