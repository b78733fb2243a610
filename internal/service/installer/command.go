package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gc-monitoring/sensor-installer/internal/backend"
	"github.com/gc-monitoring/sensor-installer/internal/config"
	"github.com/gc-monitoring/sensor-installer/internal/logger"
	"github.com/gc-monitoring/sensor-installer/internal/provision"
	"github.com/gc-monitoring/sensor-installer/internal/release"
	"github.com/gc-monitoring/sensor-installer/internal/systemd"
	"github.com/gc-monitoring/sensor-installer/internal/templater"
)

// errInstallerAlreadyRunning indicates a concurrent installer invocation.
var errInstallerAlreadyRunning = errors.New("the installer is already running")

// Options are inputs accepted by the installer entry point.
type Options struct {
	// Manager overrides the init-system adapter; nil connects to systemd
	// over dbus. Used by tests.
	Manager systemd.Manager
}

// Run executes the full install flow and is the public entry point for the CLI:
// validate configuration, probe the backend, download and extract the
// release, template shipped configs, provision systemd artifacts, and start
// the service. Every step's success is a precondition for the next; there is
// no rollback on failure.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sensor-installer")

	if isInstallerRunningNow(ctx) {
		return errInstallerAlreadyRunning
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Configuration validated",
		"environment", cfg.EnvironmentName, "install_dir", cfg.InstallDir)

	if err = createMarker(); err != nil {
		return fmt.Errorf("create run marker: %w", err)
	}

	defer removeMarker(ctx)

	if err = backend.NewProber(nil).Check(ctx, cfg); err != nil {
		return err
	}

	machine := release.HostArchitecture()
	if err = release.NewFetcher(nil).Download(ctx, cfg.ReleaseURLPrefix, machine, cfg.TarballPath()); err != nil {
		return err
	}

	if err = installPackage(ctx, cfg, templater.EnvLookup); err != nil {
		return err
	}

	if err = provision.Apply(ctx, cfg); err != nil {
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

	if err = startService(ctx, manager, cfg); err != nil {
		return err
	}

	logger.Info(ctx, "Sensor installed successfully")

	return nil
}
