package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gc-monitoring/sensor-installer/internal/config"
	"github.com/gc-monitoring/sensor-installer/internal/logger"
)

const (
	// healthPath is the backend liveness endpoint probed before install.
	healthPath = "/health/live"

	// apiKeyHeader carries the API key on backend requests.
	apiKeyHeader = "apikey"
)

// ErrBackendUnreachable is returned when the health check does not answer 200.
var ErrBackendUnreachable = errors.New("backend is unreachable")

// Prober performs the single pre-install health check against the backend.
type Prober struct {
	// client issues the probe request; defaults to http.DefaultClient.
	client *http.Client
}

// NewProber returns a Prober using the provided HTTP client,
// falling back to http.DefaultClient when nil.
func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}

	return &Prober{client: client}
}

// Check performs one authenticated GET against the health endpoint.
// Anything other than HTTP 200, including transport failures, fails the
// check. There is no retry; the install must fail fast before downloading.
func (p *Prober) Check(ctx context.Context, cfg *config.Config) error {
	healthURL := cfg.BackendBaseURL() + healthPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	req.Header.Set(apiKeyHeader, cfg.APIKey)

	response, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", healthURL, err, ErrBackendUnreachable)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s: %w", healthURL, response.Status, ErrBackendUnreachable)
	}

	logger.InfoKV(ctx, "Backend is reachable", "url", healthURL)

	return nil
}
