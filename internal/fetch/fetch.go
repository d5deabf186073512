package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/hawk-updater/internal/config"
	"github.com/oshokin/hawk-updater/internal/logger"
)

// DownloadError reports an exhausted download, naming the URL and how many
// attempts were made.
type DownloadError struct {
	// URL is the artifact location that could not be retrieved.
	URL string
	// Attempts is the number of attempts made before giving up.
	Attempts int
	// Err is the failure of the last attempt.
	Err error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap exposes the last attempt's failure.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Fetcher downloads artifacts with bounded retries. Delay between attempts
// grows linearly with the attempt number rather than exponentially: artifact
// servers are generally available, and total wait must stay bounded for an
// interactive CLI.
type Fetcher struct {
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

// NewFetcher creates a fetcher from the provided configuration.
func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		maxAttempts: cfg.MaxFetchAttempts,
		baseDelay:   cfg.FetchBaseDelay,
	}
}

// Fetch retrieves url into destinationPath, which must lie inside the caller's
// session directory so that failed or repeated fetches never corrupt prior
// state. It retries up to the configured attempt count and returns a
// *DownloadError once attempts are exhausted.
func (f *Fetcher) Fetch(ctx context.Context, url, destinationPath string) error {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Downloading artifact",
			"url", url, "attempt", attempt, "max_attempts", f.maxAttempts)

		lastErr = f.fetchOnce(ctx, url, destinationPath)
		if lastErr == nil {
			return nil
		}

		logger.WarnKV(ctx, "Download attempt failed",
			"url", url, "attempt", attempt, "error", lastErr)

		if attempt == f.maxAttempts {
			break
		}

		// Linear backoff: attempt number times the base delay.
		select {
		case <-time.After(time.Duration(attempt) * f.baseDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &DownloadError{URL: url, Attempts: f.maxAttempts, Err: lastErr}
}

// fetchOnce performs a single download attempt, removing any partial file on failure.
func (f *Fetcher) fetchOnce(ctx context.Context, url, destinationPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, response.Status)
	}

	outputFile, err := os.Create(filepath.Clean(destinationPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", destinationPath, err)
	}

	if _, err = io.Copy(outputFile, response.Body); err != nil {
		_ = outputFile.Close()
		_ = os.Remove(destinationPath)

		return fmt.Errorf("write %s: %w", destinationPath, err)
	}

	return outputFile.Close()
}
