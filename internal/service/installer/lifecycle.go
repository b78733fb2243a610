package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gc-monitoring/sensor-installer/internal/config"
	"github.com/gc-monitoring/sensor-installer/internal/logger"
	"github.com/gc-monitoring/sensor-installer/internal/systemd"
)

// ErrServiceStartFailed is returned when systemd rejects the service start.
var ErrServiceStartFailed = errors.New("service failed to start")

// diagnosticLogLines bounds how much journal output is surfaced on start failure.
const diagnosticLogLines = 20

// startService runs the install-path lifecycle: reload the unit cache,
// enable the service for boot, stop any running instance, then start it.
// On start failure the most recent journal lines are surfaced before the
// error is returned. The final active-state re-check is observational only.
func startService(ctx context.Context, manager systemd.Manager, cfg *config.Config) error {
	serviceName := cfg.ServiceName

	if err := manager.DaemonReload(ctx); err != nil {
		return err
	}

	if err := manager.Enable(ctx, serviceName); err != nil {
		return err
	}

	active, err := manager.IsActive(ctx, serviceName)
	if err != nil {
		return err
	}

	if active {
		logger.InfoKV(ctx, "Stopping running sensor instance", "service", serviceName)

		if err = manager.Stop(ctx, serviceName); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Starting sensor service", "service", serviceName)

	if err = manager.Start(ctx, serviceName); err != nil {
		surfaceRecentLogs(ctx, manager, serviceName)

		return fmt.Errorf("%s: %v: %w", serviceName, err, ErrServiceStartFailed)
	}

	// Observational only: the start already succeeded, the exit code is set.
	active, err = manager.IsActive(ctx, serviceName)
	if err != nil || !active {
		logger.WarnKV(ctx, "Sensor service is not reporting active yet", "service", serviceName)
		return nil
	}

	logger.InfoKV(ctx, "Sensor service is active", "service", serviceName)

	return nil
}

// surfaceRecentLogs dumps the service's latest journal lines to aid diagnosis.
func surfaceRecentLogs(ctx context.Context, manager systemd.Manager, serviceName string) {
	recentLogs, err := manager.RecentLogs(ctx, serviceName, diagnosticLogLines)
	if err != nil {
		logger.Warnf(ctx, "Unable to fetch recent service logs: %v", err)
		return
	}

	logger.ErrorKV(ctx, "Sensor service failed to start, recent logs follow",
		"service", serviceName, "logs", recentLogs)
}
