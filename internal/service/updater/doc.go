// Package updater orchestrates one install attempt of the managed binary:
// version resolution, artifact download, checksum verification, backup,
// extraction, atomic placement, smoke test, and rollback on failure.
package updater
