package uninstaller

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gc-monitoring/sensor-installer/internal/config"
	"github.com/gc-monitoring/sensor-installer/internal/logger"
	"github.com/gc-monitoring/sensor-installer/internal/systemd"
)

// Options are inputs accepted by the uninstaller entry point.
type Options struct {
	// Manager overrides the init-system adapter; nil connects to systemd
	// over dbus. Used by tests.
	Manager systemd.Manager
}

// Run tears down the sensor service and installation. Every step is guarded
// by an existence or state check, so running it on a host that never had the
// sensor installed succeeds as a no-op.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sensor-uninstaller")

	cfg, err := config.PathsFromEnv()
	if err != nil {
		return err
	}

	manager := opts.Manager
	if manager == nil {
		dbusManager, connErr := systemd.Connect(ctx)
		if connErr != nil {
			return connErr
		}

		defer dbusManager.Close()

		manager = dbusManager
	}

	if err = uninstall(ctx, manager, cfg, cfg.UnitFilePath()); err != nil {
		return err
	}

	logger.Info(ctx, "Sensor uninstalled")

	return nil
}

// uninstall stops and disables the service, removes its unit file and
// deletes the installation directory, skipping whatever is already absent.
func uninstall(ctx context.Context, manager systemd.Manager, cfg *config.Config, unitPath string) error {
	serviceName := cfg.ServiceName

	active, err := manager.IsActive(ctx, serviceName)
	if err != nil {
		return err
	}

	if active {
		logger.InfoKV(ctx, "Stopping sensor service", "service", serviceName)

		if err = manager.Stop(ctx, serviceName); err != nil {
			return err
		}
	}

	enabled, err := manager.IsEnabled(ctx, serviceName)
	if err != nil {
		return err
	}

	if enabled {
		logger.InfoKV(ctx, "Disabling sensor service", "service", serviceName)

		if err = manager.Disable(ctx, serviceName); err != nil {
			return err
		}
	}

	if err = removeUnitFile(ctx, manager, unitPath); err != nil {
		return err
	}

	return removeInstallDir(ctx, cfg.InstallDir)
}

// removeUnitFile deletes the unit file if present and reloads the unit cache.
func removeUnitFile(ctx context.Context, manager systemd.Manager, unitPath string) error {
	if _, err := os.Stat(unitPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("stat unit file: %w", err)
	}

	logger.InfoKV(ctx, "Removing unit file", "path", unitPath)

	if err := os.Remove(unitPath); err != nil {
		return fmt.Errorf("remove unit file: %w", err)
	}

	return manager.DaemonReload(ctx)
}

// removeInstallDir recursively deletes the installation directory if present.
func removeInstallDir(ctx context.Context, installDir string) error {
	if _, err := os.Stat(installDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("stat installation directory: %w", err)
	}

	logger.InfoKV(ctx, "Removing installation directory", "path", installDir)

	if err := os.RemoveAll(installDir); err != nil {
		return fmt.Errorf("remove installation directory: %w", err)
	}

	return nil
}
