// Package installer orchestrates sensor provisioning: configuration
// validation, backend health probing, release download and extraction,
// configuration templating, systemd provisioning and service start.
//
// The flow is strictly sequential; any failure aborts the run without
// rollback, leaving the installation directory in place for inspection.
package installer
