package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/hawk-updater/internal/config"
	"github.com/oshokin/hawk-updater/internal/logger"
)

var (
	// ErrNotInstalled indicates the managed binary is absent from the target path.
	ErrNotInstalled = errors.New("tool is not installed")
	// ErrUnknownVersion indicates the installed binary's version output could
	// not be parsed. Distinct from absence, and never fatal to an install.
	ErrUnknownVersion = errors.New("installed version is unknown")
)

const (
	// versionCommandTimeout bounds execution of the installed binary's version query.
	versionCommandTimeout = 10 * time.Second

	// maxListingBytes caps how much of the fallback listing page is read.
	maxListingBytes = 1 << 20
)

// Resolver answers questions about installed and upstream versions.
type Resolver struct {
	cfg    *config.Config
	client *http.Client
}

// index is the machine-readable release index document at the host root.
type index struct {
	// Versions lists published version strings, order unspecified.
	Versions []string `yaml:"versions"`
}

// NewResolver creates a resolver for the provided configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
	}
}

// CurrentVersion invokes the installed binary's version query and parses the
// reported version. It returns ErrNotInstalled when the binary is absent and
// ErrUnknownVersion when it runs but the output carries no version token.
func (r *Resolver) CurrentVersion(ctx context.Context) (Version, error) {
	if _, err := os.Stat(r.cfg.TargetPath); errors.Is(err, os.ErrNotExist) {
		return Version{}, ErrNotInstalled
	}

	cmdCtx, cancel := context.WithTimeout(ctx, versionCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, r.cfg.TargetPath, "--version")

	output, err := cmd.Output()
	if err != nil {
		// Keep the execution error in the chain so callers can still tell a
		// cancelled query apart from a binary that prints garbage.
		return Version{}, fmt.Errorf("%s --version: %w: %w", r.cfg.TargetPath, ErrUnknownVersion, err)
	}

	return ParseFromOutput(string(output))
}

// ParseFromOutput extracts the first version token from executable output.
func ParseFromOutput(output string) (Version, error) {
	token := versionTokenPattern.FindString(output)
	if token == "" {
		return Version{}, ErrUnknownVersion
	}

	return Parse(token)
}

// ListLatest returns up to n upstream versions, newest first. When the index
// query fails it falls back to scraping the human-oriented listing page for
// version-like tokens. This call never fails: an empty slice is a valid,
// if degraded, result.
func (r *Resolver) ListLatest(ctx context.Context, n int) []Version {
	versions := r.queryIndex(ctx)
	if versions == nil {
		versions = r.scrapeListing(ctx)
	}

	SortDesc(versions)

	if len(versions) > n {
		versions = versions[:n]
	}

	return versions
}

// Exists issues a metadata-only probe against the archive URL for the version.
// Network failure is treated as non-existence.
func (r *Resolver) Exists(ctx context.Context, v Version) bool {
	archiveURL, err := r.cfg.ArchiveURL(v.String())
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, archiveURL, http.NoBody)
	if err != nil {
		return false
	}

	response, err := r.client.Do(req)
	if err != nil {
		return false
	}

	defer func() {
		_ = response.Body.Close()
	}()

	return response.StatusCode == http.StatusOK
}

// queryIndex fetches and parses the release index, returning nil on any failure.
func (r *Resolver) queryIndex(ctx context.Context) []Version {
	indexURL, err := r.cfg.IndexURL()
	if err != nil {
		return nil
	}

	data, err := r.get(ctx, indexURL)
	if err != nil {
		logger.WarnKV(ctx, "Release index query failed, falling back to listing page",
			"url", indexURL, "error", err)

		return nil
	}

	var doc index
	if err = yaml.Unmarshal(data, &doc); err != nil {
		logger.WarnKV(ctx, "Release index is malformed, falling back to listing page",
			"url", indexURL, "error", err)

		return nil
	}

	seen := make(map[Version]struct{}, len(doc.Versions))

	// Non-nil even when empty: a valid index with no published versions is an
	// answer, not a reason to fall back to scraping.
	versions := make([]Version, 0, len(doc.Versions))

	for _, raw := range doc.Versions {
		parsed, parseErr := Parse(raw)
		if parseErr != nil {
			logger.DebugKV(ctx, "Skipping malformed index entry", "entry", raw)
			continue
		}

		if _, found := seen[parsed]; found {
			continue
		}

		seen[parsed] = struct{}{}
		versions = append(versions, parsed)
	}

	return versions
}

// scrapeListing extracts version tokens from the human-oriented release page.
// Best effort only: the page format is undocumented, so any failure degrades
// to an empty result.
func (r *Resolver) scrapeListing(ctx context.Context) []Version {
	listingURL, err := r.cfg.ListingURL()
	if err != nil {
		return nil
	}

	data, err := r.get(ctx, listingURL)
	if err != nil {
		logger.WarnKV(ctx, "Release listing page is unavailable", "url", listingURL, "error", err)
		return nil
	}

	return parseTokens(string(data))
}

// get performs a single GET and returns the response body.
func (r *Resolver) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", rawURL, response.Status)
	}

	return io.ReadAll(io.LimitReader(response.Body, maxListingBytes))
}
