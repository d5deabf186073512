package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"runtime"
	"strings"
	"time"
)

// Config holds the parameters of one updater invocation. There is no
// persistent settings file: defaults are compiled in and may be overridden
// by command-line flags only.
type Config struct {
	// ToolName is the base name of the managed binary.
	ToolName string
	// TargetPath is the fixed local path of the installed binary.
	TargetPath string
	// ReleaseHost is the base URL of the release host.
	ReleaseHost string
	// MaxFetchAttempts bounds retries for a single artifact download.
	MaxFetchAttempts int
	// FetchBaseDelay is multiplied by the attempt number between retries.
	FetchBaseDelay time.Duration
	// ConnectTimeout bounds connection establishment per attempt.
	ConnectTimeout time.Duration
	// RequestTimeout bounds a whole download attempt.
	RequestTimeout time.Duration
	// LatestCount is how many upstream versions the status mode lists.
	LatestCount int
}

const (
	// DefaultToolName is the managed binary's base name.
	DefaultToolName = "hawk"

	// DefaultReleaseHost is the fixed release host serving archives and manifests.
	DefaultReleaseHost = "https://downloads.hawk-tool.dev/releases"

	// DefaultLogFilename is the append-only log file written next to the binary.
	DefaultLogFilename = "hawk-updater.log"

	// DefaultMaxFetchAttempts bounds download retries per artifact.
	DefaultMaxFetchAttempts = 3

	// DefaultFetchBaseDelay is the base inter-attempt delay; the wait grows
	// linearly with the attempt number to keep total wait bounded for an
	// interactive CLI.
	DefaultFetchBaseDelay = 2 * time.Second

	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds one whole download attempt.
	DefaultRequestTimeout = 2 * time.Minute

	// DefaultLatestCount is how many versions the status mode lists.
	DefaultLatestCount = 5

	// DefaultFileMode is applied to the installed binary.
	DefaultFileMode os.FileMode = 0o755

	// indexFilename is the machine-readable release index at the host root.
	indexFilename = "index.yaml"
)

var (
	// errToolNameRequired is returned when the tool name is empty.
	errToolNameRequired = errors.New("tool name must be provided")
	// errReleaseHostRequired is returned when the release host is empty.
	errReleaseHostRequired = errors.New("release host must be provided")
)

// Default returns a configuration populated with compiled-in defaults.
func Default() *Config {
	return &Config{
		ToolName:         DefaultToolName,
		TargetPath:       "./" + DefaultToolName + executableExtension(),
		ReleaseHost:      DefaultReleaseHost,
		MaxFetchAttempts: DefaultMaxFetchAttempts,
		FetchBaseDelay:   DefaultFetchBaseDelay,
		ConnectTimeout:   DefaultConnectTimeout,
		RequestTimeout:   DefaultRequestTimeout,
		LatestCount:      DefaultLatestCount,
	}
}

// Validate checks the provided configuration for required fields and formatting,
// filling zero values with defaults.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ToolName) == "" {
		return errToolNameRequired
	}

	if cfg.ReleaseHost == "" {
		return errReleaseHostRequired
	}

	if _, err := url.ParseRequestURI(cfg.ReleaseHost); err != nil {
		return fmt.Errorf("invalid release host URI: %w", err)
	}

	if cfg.TargetPath == "" {
		cfg.TargetPath = "./" + cfg.ToolName + executableExtension()
	}

	if cfg.MaxFetchAttempts <= 0 {
		cfg.MaxFetchAttempts = DefaultMaxFetchAttempts
	}

	if cfg.FetchBaseDelay <= 0 {
		cfg.FetchBaseDelay = DefaultFetchBaseDelay
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.LatestCount <= 0 {
		cfg.LatestCount = DefaultLatestCount
	}

	return nil
}

// ArchiveName returns the platform-specific archive filename for a version.
func (c *Config) ArchiveName(version string) string {
	return fmt.Sprintf("%s-%s-%s-%s.tar.gz", c.ToolName, version, runtime.GOOS, runtime.GOARCH)
}

// ManifestName returns the checksum manifest filename for a version.
func (c *Config) ManifestName(version string) string {
	return fmt.Sprintf("%s-%s-checksums.txt", c.ToolName, version)
}

// ArchiveURL returns the download URL of the archive for a version.
func (c *Config) ArchiveURL(version string) (string, error) {
	return c.hostURL("v"+version, c.ArchiveName(version))
}

// ManifestURL returns the download URL of the checksum manifest for a version.
func (c *Config) ManifestURL(version string) (string, error) {
	return c.hostURL("v"+version, c.ManifestName(version))
}

// IndexURL returns the URL of the machine-readable release index.
func (c *Config) IndexURL() (string, error) {
	return c.hostURL(indexFilename)
}

// ListingURL returns the URL of the human-oriented release listing page,
// scraped as a fallback when the index query fails.
func (c *Config) ListingURL() (string, error) {
	return c.hostURL()
}

// hostURL composes a URL under the release host.
func (c *Config) hostURL(elements ...string) (string, error) {
	hostURL, err := url.Parse(c.ReleaseHost)
	if err != nil {
		return "", fmt.Errorf("parse release host: %w", err)
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	hostURL.Path = path.Join(append([]string{hostURL.Path}, elements...)...)

	return hostURL.String(), nil
}

// executableExtension returns ".exe" on Windows and "" elsewhere.
func executableExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}
