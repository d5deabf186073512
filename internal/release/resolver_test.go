package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/hawk-updater/internal/config"
)

// testConfig returns a validated configuration pointing at the given host.
func testConfig(t *testing.T, host string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.ReleaseHost = host
	cfg.TargetPath = filepath.Join(t.TempDir(), "hawk")
	require.NoError(t, config.Validate(cfg))

	return cfg
}

// writeFakeTool drops a shell script at path reporting the given version.
func writeFakeTool(t *testing.T, path, version string) {
	t.Helper()

	script := "#!/bin/sh\necho \"hawk version " + version + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
}

// TestCurrentVersion covers the installed, absent and unparseable cases.
func TestCurrentVersion(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("test tool is a shell script")
	}

	ctx := context.Background()
	cfg := testConfig(t, "https://example.com/releases")

	resolver := NewResolver(cfg)

	// Absent binary.
	_, err := resolver.CurrentVersion(ctx)
	require.ErrorIs(t, err, ErrNotInstalled)

	// Installed binary reporting a parseable version.
	writeFakeTool(t, cfg.TargetPath, "1.2.3")

	v, err := resolver.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", v.String())

	// Installed binary with unparseable output.
	require.NoError(t, os.WriteFile(cfg.TargetPath, []byte("#!/bin/sh\necho pelican\n"), 0o755))

	_, err = resolver.CurrentVersion(ctx)
	require.ErrorIs(t, err, ErrUnknownVersion)
}

// TestListLatestFromIndex returns deduplicated versions, newest first.
func TestListLatestFromIndex(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.yaml" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte("versions:\n  - 1.0.0\n  - 2.1.0\n  - 2.1.0\n  - 1.5.0-rc1\n  - nonsense\n"))
	}))
	defer server.Close()

	resolver := NewResolver(testConfig(t, server.URL))

	versions := resolver.ListLatest(context.Background(), 2)
	require.Len(t, versions, 2)
	require.Equal(t, "2.1.0", versions[0].String())
	require.Equal(t, "1.5.0-rc1", versions[1].String())
}

// TestListLatestFallsBackToListing scrapes the listing page when the index fails.
func TestListLatestFallsBackToListing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.yaml" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}

		page := `<html><body>
			<a href="v1.4.0/">hawk 1.4.0</a>
			<a href="v1.3.2/">hawk 1.3.2</a>
			<a href="v1.4.0/">hawk 1.4.0</a>
		</body></html>`
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	resolver := NewResolver(testConfig(t, server.URL))

	versions := resolver.ListLatest(context.Background(), 10)
	require.Len(t, versions, 2)
	require.Equal(t, "1.4.0", versions[0].String())
	require.Equal(t, "1.3.2", versions[1].String())
}

// TestListLatestEmptyIndexSkipsFallback trusts a valid index that lists no
// versions instead of scraping the listing page.
func TestListLatestEmptyIndexSkipsFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.yaml" {
			_, _ = w.Write([]byte("versions: []\n"))
			return
		}

		// The listing page advertises versions the index does not. If the
		// fallback ran, they would leak into the result.
		_, _ = w.Write([]byte(`<a href="v3.0.0/">hawk 3.0.0</a>`))
	}))
	defer server.Close()

	resolver := NewResolver(testConfig(t, server.URL))
	require.Empty(t, resolver.ListLatest(context.Background(), 5))
}

// TestListLatestDegradesToEmpty never fails even when the host is gone.
func TestListLatestDegradesToEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	resolver := NewResolver(testConfig(t, server.URL))
	require.Empty(t, resolver.ListLatest(context.Background(), 5))
}

// TestExists probes the archive URL and treats failures as non-existence.
func TestExists(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://placeholder")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)

		if r.URL.Path == "/v1.2.3/"+cfg.ArchiveName("1.2.3") {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg.ReleaseHost = server.URL
	resolver := NewResolver(cfg)

	published, err := Parse("1.2.3")
	require.NoError(t, err)
	require.True(t, resolver.Exists(context.Background(), published))

	missing, err := Parse("9.9.9")
	require.NoError(t, err)
	require.False(t, resolver.Exists(context.Background(), missing))

	// Unreachable host reads as non-existence, not a distinct error.
	server.Close()
	require.False(t, resolver.Exists(context.Background(), published))
}
