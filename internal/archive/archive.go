package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound indicates the expected file is absent from the archive.
var ErrFileNotFound = errors.New("file not found in archive")

// ExtractTarGz expands a .tar.gz archive into destDir.
// Entries resolving outside destDir are rejected.
func ExtractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = archiveFile.Close()
	}()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	if err = os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name) //nolint:gosec // Guarded right below.
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err = writeEntry(tarReader, target, fs.FileMode(header.Mode)); err != nil { //nolint:gosec // Mode fits.
				return err
			}

		default:
			// Symlinks, devices and the rest have no business in a release archive.
			continue
		}
	}
}

// FindFile walks root looking for a regular file with the given base name
// and returns its full path.
func FindFile(root, name string) (string, error) {
	var found string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() && entry.Name() == name {
			found = path
			return fs.SkipAll
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}

	if found == "" {
		return "", fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}

	return found, nil
}

// writeEntry copies one archive entry to disk.
func writeEntry(tarReader *tar.Reader, target string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	outputFile, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	//nolint:gosec // Release archives are checksum-verified before extraction.
	if _, err = io.Copy(outputFile, tarReader); err != nil {
		_ = outputFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	return outputFile.Close()
}
