// Package checksum verifies downloaded artifacts against the release's
// checksum manifest. Verification is mandatory and unconditional.
package checksum
