// Package systemd wraps the host init system behind a narrow Manager
// interface (reload, enable, disable, start, stop, status, recent logs).
//
// The production implementation speaks to systemd over the system dbus via
// go-systemd; lifecycle controllers depend only on the interface so they can
// be tested against a fake.
package systemd
