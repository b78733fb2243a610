package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gc-monitoring/sensor-installer/internal/backend"
	"github.com/gc-monitoring/sensor-installer/internal/config"
)

// setRequiredEnvironment provides the mandatory variables and roots temp
// paths in the test's own directory.
func setRequiredEnvironment(t *testing.T, domain string) {
	t.Helper()

	t.Setenv("TMPDIR", t.TempDir())
	t.Setenv(config.EnvAPIKey, "test-api-key")
	t.Setenv(config.EnvEnvironmentName, "staging")
	t.Setenv(config.EnvBackendDomain, domain)
}

func TestRun_UnhealthyBackendAbortsBeforeDownload(t *testing.T) {
	backendServer := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
	defer backendServer.Close()

	var downloads atomic.Int32

	releaseServer := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, _ *http.Request) {
			downloads.Add(1)
			writer.WriteHeader(http.StatusOK)
		}))
	defer releaseServer.Close()

	setRequiredEnvironment(t, backendServer.URL)
	t.Setenv(config.EnvReleaseURLPrefix, releaseServer.URL+"/gc-sensor")

	manager := &fakeManager{}

	err := Run(context.Background(), &Options{Manager: manager})
	require.ErrorIs(t, err, backend.ErrBackendUnreachable)

	require.Zero(t, downloads.Load(),
		"release artifact must not be fetched when the backend is unreachable")
	require.Empty(t, manager.calls)
}

func TestRun_MissingConfigurationAbortsBeforeSideEffects(t *testing.T) {
	var backendHits atomic.Int32

	backendServer := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, _ *http.Request) {
			backendHits.Add(1)
			writer.WriteHeader(http.StatusOK)
		}))
	defer backendServer.Close()

	setRequiredEnvironment(t, backendServer.URL)
	t.Setenv(config.EnvAPIKey, "")

	// A temp directory that does not exist makes any attempted marker or
	// tarball write fail loudly instead of passing unnoticed.
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))

	err := Run(context.Background(), &Options{Manager: &fakeManager{}})
	require.ErrorIs(t, err, config.ErrMissingConfiguration)

	require.Zero(t, backendHits.Load())
}
