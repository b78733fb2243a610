package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gc-monitoring/sensor-installer/internal/archive"
	"github.com/gc-monitoring/sensor-installer/internal/config"
	"github.com/gc-monitoring/sensor-installer/internal/logger"
	"github.com/gc-monitoring/sensor-installer/internal/templater"
)

var (
	// ErrArtifactMissing is returned when the release tarball is absent.
	ErrArtifactMissing = errors.New("release artifact is missing")

	// ErrExecutableMissing is returned when the extracted package lacks the
	// sensor executable.
	ErrExecutableMissing = errors.New("sensor executable is missing from package")
)

// executableMode marks the sensor binary runnable after extraction.
const executableMode os.FileMode = 0o755

// installDirMode is used when creating the installation directory.
const installDirMode os.FileMode = 0o755

// installPackage extracts the downloaded artifact into the installation
// directory, verifies and marks the sensor executable, and templates every
// shipped configuration file. Any templating failure aborts the install.
func installPackage(ctx context.Context, cfg *config.Config, lookup templater.Lookup) error {
	tarballPath := cfg.TarballPath()
	if _, err := os.Stat(tarballPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", tarballPath, ErrArtifactMissing)
		}

		return fmt.Errorf("stat artifact: %w", err)
	}

	if err := os.MkdirAll(cfg.InstallDir, installDirMode); err != nil {
		return fmt.Errorf("create installation directory: %w", err)
	}

	logger.InfoKV(ctx, "Extracting release package", "tarball", tarballPath, "target", cfg.InstallDir)

	if err := archive.ExtractTarGz(tarballPath, cfg.InstallDir); err != nil {
		return fmt.Errorf("extract package: %w", err)
	}

	binaryPath := cfg.BinaryPath()
	if _, err := os.Stat(binaryPath); err != nil {
		return fmt.Errorf("%s: %w", binaryPath, ErrExecutableMissing)
	}

	if err := os.Chmod(binaryPath, executableMode); err != nil {
		return fmt.Errorf("mark executable: %w", err)
	}

	return templateConfigFiles(ctx, cfg, lookup)
}

// templateConfigFiles runs the templater over the general configuration file
// and every shipped scrape configuration.
func templateConfigFiles(ctx context.Context, cfg *config.Config, lookup templater.Lookup) error {
	if err := templater.Apply(ctx, cfg.GeneralConfigPath(), lookup); err != nil {
		return err
	}

	scrapeConfigs, err := filepath.Glob(cfg.ScrapeConfigGlob())
	if err != nil {
		return fmt.Errorf("list scrape configs: %w", err)
	}

	if len(scrapeConfigs) == 0 {
		logger.WarnKV(ctx, "Package shipped no scrape configs", "pattern", cfg.ScrapeConfigGlob())
	}

	for _, path := range scrapeConfigs {
		if err = templater.Apply(ctx, path, lookup); err != nil {
			return err
		}
	}

	return nil
}
