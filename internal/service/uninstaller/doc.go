// Package uninstaller reverses a sensor installation: it stops and disables
// the service, removes the unit file and deletes the installation directory.
//
// Every step is individually guarded, so uninstalling a host that was never
// provisioned is a successful no-op.
package uninstaller
