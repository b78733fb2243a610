package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gc-monitoring/sensor-installer/internal/logger"
)

var (
	// ErrUnsupportedPlatform is returned for architectures with no release artifact.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrDownloadFailed is returned when the artifact cannot be fetched.
	ErrDownloadFailed = errors.New("release download failed")
)

// artifactTags maps host architecture identifiers to release artifact tags.
// Both Go and kernel spellings are accepted.
var artifactTags = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
}

// HostArchitecture reports the architecture identifier of the current host.
func HostArchitecture() string {
	return runtime.GOARCH
}

// ArtifactTag resolves a host architecture identifier to the release artifact tag.
func ArtifactTag(machine string) (string, error) {
	tag, ok := artifactTags[machine]
	if !ok {
		return "", fmt.Errorf("architecture %q: %w", machine, ErrUnsupportedPlatform)
	}

	return tag, nil
}

// Fetcher downloads release artifacts over HTTPS.
type Fetcher struct {
	// client issues download requests; defaults to http.DefaultClient.
	client *http.Client
}

// NewFetcher returns a Fetcher using the provided HTTP client,
// falling back to http.DefaultClient when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{client: client}
}

// Download resolves the artifact for the given architecture, fetches
// "<urlPrefix>-<tag>" and streams it to destination. A non-200 response or a
// broken transfer removes the partially written file and fails with
// ErrDownloadFailed. Single attempt, no resume.
func (f *Fetcher) Download(ctx context.Context, urlPrefix, machine, destination string) error {
	tag, err := ArtifactTag(machine)
	if err != nil {
		return err
	}

	downloadURL := urlPrefix + "-" + tag

	logger.InfoKV(ctx, "Downloading release artifact", "url", downloadURL, "destination", destination)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", downloadURL, err, ErrDownloadFailed)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s: %w", downloadURL, response.Status, ErrDownloadFailed)
	}

	if err = writeBody(response.Body, destination); err != nil {
		return fmt.Errorf("%s: %v: %w", downloadURL, err, ErrDownloadFailed)
	}

	return nil
}

// writeBody streams the response body to destination,
// removing the partial file on any write failure.
func writeBody(body io.Reader, destination string) error {
	outputFile, err := os.Create(filepath.Clean(destination))
	if err != nil {
		return err
	}

	if _, err = io.Copy(outputFile, body); err != nil {
		_ = outputFile.Close()
		_ = os.Remove(destination)

		return err
	}

	if err = outputFile.Close(); err != nil {
		_ = os.Remove(destination)

		return err
	}

	return nil
}
