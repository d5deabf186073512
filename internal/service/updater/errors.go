package updater

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionNotFound indicates the requested version is not published
	// on the release host.
	ErrVersionNotFound = errors.New("version not found on release host")

	// ErrSmokeTestFailed indicates the newly placed binary does not run or
	// misreports its version.
	ErrSmokeTestFailed = errors.New("smoke test failed")
)

// DualFailureError is the unrecoverable case where an install step failed and
// restoring the previous binary also failed. The target may hold neither a
// runnable old nor new binary; the retained backup allows manual recovery.
type DualFailureError struct {
	// Primary is the install failure that triggered the rollback.
	Primary error
	// Restore is the failure of the rollback itself.
	Restore error
	// BackupPath is the retained backup copy of the previous binary.
	BackupPath string
}

// Error implements the error interface.
func (e *DualFailureError) Error() string {
	return fmt.Sprintf(
		"MANUAL INTERVENTION REQUIRED: install failed (%v) and restoring the previous binary also failed (%v); backup retained at %s",
		e.Primary, e.Restore, e.BackupPath)
}

// Unwrap exposes both underlying failures.
func (e *DualFailureError) Unwrap() []error {
	return []error{e.Primary, e.Restore}
}
