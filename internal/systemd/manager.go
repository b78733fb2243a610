package systemd

import "context"

// Manager is the narrow surface of the init system the lifecycle controllers
// depend on. Production code uses the dbus-backed implementation; tests
// substitute a fake.
type Manager interface {
	// DaemonReload re-reads the unit cache after unit files change on disk.
	DaemonReload(ctx context.Context) error
	// Enable marks the unit for boot-time start.
	Enable(ctx context.Context, unit string) error
	// Disable removes the unit from boot-time start.
	Disable(ctx context.Context, unit string) error
	// Start starts the unit and waits for the job to finish.
	Start(ctx context.Context, unit string) error
	// Stop stops the unit and waits for the job to finish.
	Stop(ctx context.Context, unit string) error
	// IsActive reports whether the unit is currently active.
	IsActive(ctx context.Context, unit string) (bool, error)
	// IsEnabled reports whether the unit is enabled for boot-time start.
	IsEnabled(ctx context.Context, unit string) (bool, error)
	// RecentLogs returns up to maxLines of the unit's latest log output.
	RecentLogs(ctx context.Context, unit string, maxLines int) (string, error)
}
