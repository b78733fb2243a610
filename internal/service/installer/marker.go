package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/gc-monitoring/sensor-installer/internal/logger"
)

const (
	// markerFilename marks that an installer run is in progress so two
	// invocations cannot race on the same files.
	markerFilename = "sensor-installer-marker.bin"

	// markerLifetime is the age past which a marker alone is not trusted
	// and the process table is consulted instead.
	markerLifetime = 30 * time.Second

	// installerExecutableName is the process name checked during stale-marker recovery.
	installerExecutableName = "sensor-installer"
)

// markerPath returns the location of the run marker.
func markerPath() string {
	return filepath.Join(os.TempDir(), markerFilename)
}

// createMarker writes the run marker.
func createMarker() error {
	marker, err := os.Create(markerPath())
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker deletes the run marker if present.
func removeMarker(ctx context.Context) {
	if _, err := os.Stat(markerPath()); err == nil {
		if err = os.Remove(markerPath()); err != nil {
			logger.Warnf(ctx, "Unable to remove run marker: %v", err)
		}
	}
}

// isInstallerRunningNow checks for a concurrent installer run. A fresh marker
// means one is in progress; a stale marker is only trusted when another
// installer process is actually alive, otherwise it is cleaned up.
func isInstallerRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(markerPath())
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is stale, checking for a live installer process")

		if anotherInstallerAlive() {
			return true
		}

		if err = os.Remove(markerPath()); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// anotherInstallerAlive scans the process table for a sibling installer process.
func anotherInstallerAlive() bool {
	processList, err := ps.Processes()
	if err != nil {
		// Cannot prove it is safe to proceed.
		return true
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == installerExecutableName {
			return true
		}
	}

	return false
}
