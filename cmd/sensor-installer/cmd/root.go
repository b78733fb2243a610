package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gc-monitoring/sensor-installer/internal/logger"
	"github.com/gc-monitoring/sensor-installer/internal/service/installer"
	"github.com/gc-monitoring/sensor-installer/internal/service/uninstaller"
	"github.com/gc-monitoring/sensor-installer/internal/version"
)

var (
	// errRootRequired indicates the command was not run with superuser privilege.
	errRootRequired = errors.New("superuser privilege is required")

	// logLevel is the logging level name from the --log-level flag.
	logLevel string

	// rootCmd represents the base command for sensor provisioning.
	rootCmd = &cobra.Command{
		Use:   "sensor-installer",
		Short: "Install and manage the GC monitoring sensor as a systemd service.",
		Long: `Provisions the GC monitoring sensor on this host.

install downloads the architecture-specific sensor release, extracts it,
substitutes placeholder tokens in the shipped configuration files with
GC_* environment variable values, writes the systemd unit and environment
files, and starts the service.

uninstall stops and disables the service and removes everything install
created, preserving the user override file.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Invoking without a subcommand is an error, not a help screen.
			_ = cmd.Help()

			return fmt.Errorf("expected one of: install, uninstall")
		},
	}

	// installCmd performs the full provisioning flow.
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Download, configure and start the sensor service.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireRoot(); err != nil {
				return err
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return installer.Run(ctx, &installer.Options{})
		},
	}

	// uninstallCmd tears down the sensor service and installation.
	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Stop the sensor service and remove the installation.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireRoot(); err != nil {
				return err
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return uninstaller.Run(ctx, &uninstaller.Options{})
		},
	}
)

// Execute runs the sensor-installer CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// requireRoot fails unless the process runs with effective uid 0.
// Provisioning writes below /opt and /etc and talks to the system bus.
func requireRoot() error {
	if os.Geteuid() != 0 {
		return errRootRequired
	}

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")

	rootCmd.AddCommand(installCmd, uninstallCmd)
}
