package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCreateWithoutTarget returns a nil record for a first-time install.
func TestCreateWithoutTarget(t *testing.T) {
	t.Parallel()

	record, err := Create(context.Background(), filepath.Join(t.TempDir(), "hawk"))
	require.NoError(t, err)
	require.Nil(t, record)
}

// TestBackupRestoreDiscard round-trips the original bytes through a rollback.
func TestBackupRestoreDiscard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "hawk")
	original := []byte("original binary bytes")
	require.NoError(t, os.WriteFile(target, original, 0o755))

	record, err := Create(ctx, target)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.FileExists(t, record.BackupPath)
	require.Contains(t, filepath.Base(record.BackupPath), ".backup-")

	// Simulate a botched placement.
	require.NoError(t, os.WriteFile(target, []byte("corrupted"), 0o755))

	require.NoError(t, record.Restore(ctx))

	restored, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, original, restored)

	require.NoError(t, record.Discard())
	require.NoFileExists(t, record.BackupPath)
}

// TestRestoreWithMissingBackup fails without crashing the caller.
func TestRestoreWithMissingBackup(t *testing.T) {
	t.Parallel()

	record := &Record{
		TargetPath: filepath.Join(t.TempDir(), "hawk"),
		BackupPath: filepath.Join(t.TempDir(), "hawk.backup-gone"),
	}

	require.Error(t, record.Restore(context.Background()))
}
