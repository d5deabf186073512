package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/hawk-updater/internal/logger"
)

// backupMarker identifies backup files created by this updater.
const backupMarker = ".backup-"

// timestampLayout gives backup names second-level granularity.
const timestampLayout = "20060102-150405"

// Record references a timestamped copy of the previously installed binary.
// A record is live from the moment the target is first touched until the new
// binary passes its smoke test (Discard) or a rollback has restored the
// original (Restore, then Discard). At most one record is live per install.
type Record struct {
	// TargetPath is the installed binary the backup protects.
	TargetPath string
	// BackupPath is the sibling copy holding the original bytes.
	BackupPath string
}

// Create snapshots the file at targetPath to a timestamped sibling path.
// A missing target is not an error: a first-time install has nothing to back
// up, and Create returns a nil record.
func Create(ctx context.Context, targetPath string) (*Record, error) {
	info, err := os.Stat(targetPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.InfoKV(ctx, "No existing binary to back up", "target", targetPath)
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", targetPath, err)
	}

	backupPath := targetPath + backupMarker + time.Now().Format(timestampLayout)

	if err = copyFile(targetPath, backupPath, info.Mode()); err != nil {
		return nil, fmt.Errorf("back up %s: %w", targetPath, err)
	}

	logger.InfoKV(ctx, "Backed up installed binary", "target", targetPath, "backup", backupPath)

	return &Record{TargetPath: targetPath, BackupPath: backupPath}, nil
}

// Restore copies the backup back over the target path.
// Failure is logged and returned; the caller surfaces it as a secondary
// failure alongside the primary one rather than crashing.
func (r *Record) Restore(ctx context.Context) error {
	info, err := os.Stat(r.BackupPath)
	if err != nil {
		logger.ErrorKV(ctx, "Backup is unreadable, cannot restore", "backup", r.BackupPath, "error", err)
		return fmt.Errorf("stat backup %s: %w", r.BackupPath, err)
	}

	if err = copyFile(r.BackupPath, r.TargetPath, info.Mode()); err != nil {
		logger.ErrorKV(ctx, "Restore failed", "backup", r.BackupPath, "target", r.TargetPath, "error", err)
		return fmt.Errorf("restore %s: %w", r.TargetPath, err)
	}

	logger.InfoKV(ctx, "Restored previous binary", "target", r.TargetPath)

	return nil
}

// Discard deletes the backup file. Called after a verified install or after a
// completed rollback.
func (r *Record) Discard() error {
	if err := os.Remove(r.BackupPath); err != nil {
		return fmt.Errorf("discard backup %s: %w", r.BackupPath, err)
	}

	return nil
}

// copyFile copies source to destination with the provided mode.
func copyFile(source, destination string, mode os.FileMode) error {
	sourceFile, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer func() {
		_ = sourceFile.Close()
	}()

	destinationFile, err := os.OpenFile(filepath.Clean(destination), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		_ = destinationFile.Close()
		return err
	}

	return destinationFile.Close()
}
