package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFile writes contents into dir under name and returns the full path.
func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

// digestOf returns the hex SHA-256 of a string.
func digestOf(contents string) string {
	sum := sha256.Sum256([]byte(contents))
	return hex.EncodeToString(sum[:])
}

// TestParseManifest reads sha256sum-format lines, skipping malformed ones.
func TestParseManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifest := writeFile(t, dir, "checksums.txt", strings.Join([]string{
		"aaaa  hawk-1.2.3-linux-amd64.tar.gz",
		"bbbb  *hawk-1.2.3-darwin-arm64.tar.gz",
		"",
		"not-a-valid-line-with-one-field",
	}, "\n"))

	entries, err := ParseManifest(manifest)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "aaaa", entries["hawk-1.2.3-linux-amd64.tar.gz"])
	require.Equal(t, "bbbb", entries["hawk-1.2.3-darwin-arm64.tar.gz"])
}

// TestVerify covers the verified, missing and mismatched outcomes.
func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := writeFile(t, dir, "hawk-1.2.3-linux-amd64.tar.gz", "archive bytes")

	// Verified, with uppercase manifest digest to check case-insensitive compare.
	manifest := writeFile(t, dir, "good.txt",
		strings.ToUpper(digestOf("archive bytes"))+"  hawk-1.2.3-linux-amd64.tar.gz\n")
	require.NoError(t, Verify(artifact, manifest))

	// Missing entry.
	manifest = writeFile(t, dir, "missing.txt", digestOf("archive bytes")+"  other-file.tar.gz\n")
	require.ErrorIs(t, Verify(artifact, manifest), ErrChecksumMissing)

	// Mismatch carries expected and actual digests.
	manifest = writeFile(t, dir, "bad.txt", digestOf("different bytes")+"  hawk-1.2.3-linux-amd64.tar.gz\n")

	err := Verify(artifact, manifest)

	var mismatch *MismatchError

	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, digestOf("different bytes"), mismatch.Expected)
	require.Equal(t, digestOf("archive bytes"), mismatch.Actual)
	require.Equal(t, "hawk-1.2.3-linux-amd64.tar.gz", mismatch.File)
}
