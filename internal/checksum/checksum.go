package checksum

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrChecksumMissing indicates the manifest carries no entry for the artifact.
var ErrChecksumMissing = errors.New("checksum missing from manifest")

// MismatchError reports a digest that differs from its manifest entry,
// carrying both values for diagnostics.
type MismatchError struct {
	// File is the artifact's base filename.
	File string
	// Expected is the manifest's hex digest.
	Expected string
	// Actual is the computed hex digest.
	Actual string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.File, e.Expected, e.Actual)
}

// ParseManifest reads a checksum manifest in sha256sum format: one
// "digest filename" pair per line. Blank lines and malformed lines are skipped.
func ParseManifest(path string) (map[string]string, error) {
	manifestFile, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	defer func() {
		_ = manifestFile.Close()
	}()

	entries := make(map[string]string)

	scanner := bufio.NewScanner(manifestFile)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}

		// sha256sum marks binary-mode entries with a leading asterisk.
		name := strings.TrimPrefix(fields[1], "*")
		entries[name] = fields[0]
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return entries, nil
}

// FileDigest computes the hex-encoded SHA-256 digest of the file at path.
func FileDigest(path string) (string, error) {
	artifact, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}

	defer func() {
		_ = artifact.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, artifact); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify looks up the artifact's base filename in the manifest and compares
// digests case-insensitively. It returns ErrChecksumMissing when the manifest
// has no entry and a *MismatchError when digests differ. There is no bypass.
func Verify(artifactPath, manifestPath string) error {
	entries, err := ParseManifest(manifestPath)
	if err != nil {
		return err
	}

	name := filepath.Base(artifactPath)

	expected, found := entries[name]
	if !found {
		return fmt.Errorf("%s: %w", name, ErrChecksumMissing)
	}

	actual, err := FileDigest(artifactPath)
	if err != nil {
		return err
	}

	if !strings.EqualFold(expected, actual) {
		return &MismatchError{File: name, Expected: expected, Actual: actual}
	}

	return nil
}
