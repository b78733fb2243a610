package systemd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	sd "github.com/coreos/go-systemd/v22/dbus"
)

// jobDone is the systemd job result indicating success.
const jobDone = "done"

// errJobFailed is returned when a start/stop/restart job finishes unsuccessfully.
var errJobFailed = errors.New("systemd job did not complete successfully")

// DBus is the production Manager backed by the system dbus connection.
type DBus struct {
	conn *sd.Conn
}

// Connect opens a connection to the systemd manager on the system bus.
// The caller must Close it.
func Connect(ctx context.Context) (*DBus, error) {
	conn, err := sd.NewWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}

	return &DBus{conn: conn}, nil
}

// Close releases the dbus connection.
func (m *DBus) Close() {
	m.conn.Close()
}

// DaemonReload re-reads the systemd unit cache.
func (m *DBus) DaemonReload(ctx context.Context) error {
	if err := m.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}

	return nil
}

// Enable marks the unit for boot-time start, replacing existing symlinks.
func (m *DBus) Enable(ctx context.Context, unit string) error {
	if _, _, err := m.conn.EnableUnitFilesContext(ctx, []string{unit}, false, true); err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}

	return nil
}

// Disable removes the unit from boot-time start.
func (m *DBus) Disable(ctx context.Context, unit string) error {
	if _, err := m.conn.DisableUnitFilesContext(ctx, []string{unit}, false); err != nil {
		return fmt.Errorf("disable %s: %w", unit, err)
	}

	return nil
}

// Start starts the unit and blocks until its job completes.
func (m *DBus) Start(ctx context.Context, unit string) error {
	return m.runJob(ctx, unit, "start", m.conn.StartUnitContext)
}

// Stop stops the unit and blocks until its job completes.
func (m *DBus) Stop(ctx context.Context, unit string) error {
	return m.runJob(ctx, unit, "stop", m.conn.StopUnitContext)
}

// jobFunc is the shape shared by the systemd unit job methods.
type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

// runJob submits a unit job in "replace" mode and waits for its result.
func (m *DBus) runJob(ctx context.Context, unit, verb string, submit jobFunc) error {
	results := make(chan string, 1)

	if _, err := submit(ctx, unit, "replace", results); err != nil {
		return fmt.Errorf("%s %s: %w", verb, unit, err)
	}

	select {
	case result := <-results:
		if result != jobDone {
			return fmt.Errorf("%s %s: %s: %w", verb, unit, result, errJobFailed)
		}

		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", verb, unit, ctx.Err())
	}
}

// IsActive reports whether the unit's ActiveState is "active".
func (m *DBus) IsActive(ctx context.Context, unit string) (bool, error) {
	state, err := m.unitProperty(ctx, unit, "ActiveState")
	if err != nil {
		return false, err
	}

	return state == "active", nil
}

// IsEnabled reports whether the unit file is enabled for boot-time start.
func (m *DBus) IsEnabled(ctx context.Context, unit string) (bool, error) {
	state, err := m.unitProperty(ctx, unit, "UnitFileState")
	if err != nil {
		return false, err
	}

	return state == "enabled", nil
}

// unitProperty fetches a string property of the unit object.
func (m *DBus) unitProperty(ctx context.Context, unit, name string) (string, error) {
	properties, err := m.conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return "", fmt.Errorf("query %s of %s: %w", name, unit, err)
	}

	value, _ := properties[name].(string)

	return value, nil
}

// RecentLogs returns the unit's most recent journal lines.
// go-systemd's journal bindings require cgo, so this shells out to journalctl.
func (m *DBus) RecentLogs(ctx context.Context, unit string, maxLines int) (string, error) {
	output, err := exec.CommandContext(ctx,
		"journalctl", "-u", unit, "-n", strconv.Itoa(maxLines), "--no-pager").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("journalctl for %s: %w", unit, err)
	}

	return string(output), nil
}
