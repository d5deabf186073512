package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"

	"github.com/oshokin/hawk-updater/internal/archive"
	"github.com/oshokin/hawk-updater/internal/backup"
	"github.com/oshokin/hawk-updater/internal/checksum"
	"github.com/oshokin/hawk-updater/internal/config"
	"github.com/oshokin/hawk-updater/internal/fetch"
	"github.com/oshokin/hawk-updater/internal/logger"
	"github.com/oshokin/hawk-updater/internal/release"
)

// Options are inputs accepted by the installer entry point.
type Options struct {
	// Version is the raw user-supplied version string.
	Version string
	// Config carries the updater parameters; nil means compiled-in defaults.
	Config *config.Config
}

// installState names a phase of the install state machine, used in logs.
type installState string

const (
	stateResolving    installState = "resolving"
	stateFetching     installState = "fetching"
	stateVerifying    installState = "verifying"
	stateBackingUp    installState = "backing_up"
	stateExtracting   installState = "extracting"
	statePlacing      installState = "placing"
	stateSmokeTesting installState = "smoke_testing"
)

// session is the transient working state of one install attempt.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type session struct {
	cfg        *config.Config
	resolver   *release.Resolver
	fetcher    *fetch.Fetcher
	rawVersion string
	requested  release.Version

	// dir is the unique temporary directory holding the downloaded archive
	// and manifest. Created when fetching starts, removed on every exit path.
	dir          string
	archivePath  string
	manifestPath string

	// backupRec is live from the first mutation of the target until the new
	// binary passes its smoke test or a rollback has restored the original.
	backupRec *backup.Record
}

// Run executes one install attempt and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "hawk-updater")

	s, err := newSession(opts)
	if err != nil {
		return err
	}

	defer s.cleanup(ctx)

	if err = s.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Install failed", "version", opts.Version, "error", err)
		return err
	}

	return nil
}

// newSession validates options and prepares collaborators. No I/O happens here.
func newSession(opts *Options) (*session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return &session{
		cfg:        cfg,
		resolver:   release.NewResolver(cfg),
		fetcher:    fetch.NewFetcher(cfg),
		rawVersion: opts.Version,
	}, nil
}

// run drives the state machine: Resolving → Fetching → Verifying → BackingUp →
// Extracting → Placing → SmokeTesting → Success. Failures short-circuit, and
// any state past BackingUp rolls back the target before surfacing.
func (s *session) run(ctx context.Context) error {
	// Cancellation is observed at every state transition: before the first
	// mutation it simply aborts, after it the usual rollback path runs.
	if err := ctx.Err(); err != nil {
		return err
	}

	done, err := s.resolve(ctx)
	if err != nil || done {
		return err
	}

	if err = s.fetchArtifacts(ctx); err != nil {
		return err
	}

	if err = s.verify(ctx); err != nil {
		return err
	}

	if err = s.backUp(ctx); err != nil {
		return err
	}

	binaryPath, err := s.extract(ctx)
	if err != nil {
		return s.rollbackOrFail(ctx, err)
	}

	if err = ctx.Err(); err != nil {
		return s.rollbackOrFail(ctx, err)
	}

	if err = s.place(ctx, binaryPath); err != nil {
		return s.rollbackOrFail(ctx, err)
	}

	if err = s.smokeTest(ctx); err != nil {
		return s.rollbackOrFail(ctx, err)
	}

	s.finish(ctx)

	return nil
}

// resolve validates the requested version and checks it against the installed
// one and the release host. The short-circuit path (requested equals
// installed) performs zero network access. The returned bool reports that the
// attempt is already complete.
func (s *session) resolve(ctx context.Context) (bool, error) {
	s.logState(ctx, stateResolving)

	requested, err := release.Parse(release.Sanitize(s.rawVersion))
	if err != nil {
		return false, err
	}

	s.requested = requested

	current, err := s.resolver.CurrentVersion(ctx)

	switch {
	case err == nil && current.Equal(requested):
		logger.InfoKV(ctx, "Requested version is already installed, nothing to do",
			"version", requested.String())

		return true, nil
	case errors.Is(err, release.ErrNotInstalled):
		logger.Info(ctx, "No installed binary found, performing a first-time install")
	case errors.Is(err, release.ErrUnknownVersion):
		// Never fatal: an unreadable version just means we cannot short-circuit.
		logger.Warn(ctx, "Installed binary did not report a parseable version")
	case err != nil:
		logger.WarnKV(ctx, "Could not determine installed version", "error", err)
	default:
		logger.InfoKV(ctx, "Updating installed binary",
			"from", current.String(), "to", requested.String())
	}

	if !s.resolver.Exists(ctx, requested) {
		return false, fmt.Errorf("%s: %w", requested.String(), ErrVersionNotFound)
	}

	return false, nil
}

// fetchArtifacts creates the session directory and downloads the archive and
// its checksum manifest into it.
func (s *session) fetchArtifacts(ctx context.Context) error {
	s.logState(ctx, stateFetching)

	dir, err := os.MkdirTemp("", "hawk-updater-")
	if err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	s.dir = dir
	versionString := s.requested.String()

	archiveURL, err := s.cfg.ArchiveURL(versionString)
	if err != nil {
		return err
	}

	manifestURL, err := s.cfg.ManifestURL(versionString)
	if err != nil {
		return err
	}

	s.archivePath = filepath.Join(dir, s.cfg.ArchiveName(versionString))
	s.manifestPath = filepath.Join(dir, s.cfg.ManifestName(versionString))

	if err = s.fetcher.Fetch(ctx, archiveURL, s.archivePath); err != nil {
		return err
	}

	return s.fetcher.Fetch(ctx, manifestURL, s.manifestPath)
}

// verify gates progression on the archive's checksum. No bypass exists.
func (s *session) verify(ctx context.Context) error {
	s.logState(ctx, stateVerifying)

	if err := checksum.Verify(s.archivePath, s.manifestPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Archive checksum verified", "archive", filepath.Base(s.archivePath))

	return nil
}

// backUp snapshots the installed binary before any mutation. A missing target
// simply proceeds without a backup record.
func (s *session) backUp(ctx context.Context) error {
	s.logState(ctx, stateBackingUp)

	record, err := backup.Create(ctx, s.cfg.TargetPath)
	if err != nil {
		return err
	}

	s.backupRec = record

	return nil
}

// extract expands the archive inside the session directory and confirms the
// expected binary is present.
func (s *session) extract(ctx context.Context) (string, error) {
	s.logState(ctx, stateExtracting)

	s.warnIfToolRunning(ctx)

	extractedDir := filepath.Join(s.dir, "extracted")
	if err := archive.ExtractTarGz(s.archivePath, extractedDir); err != nil {
		return "", err
	}

	binaryName := filepath.Base(s.cfg.TargetPath)

	binaryPath, err := archive.FindFile(extractedDir, binaryName)
	if err != nil {
		return "", err
	}

	return binaryPath, nil
}

// place copies the extracted binary over the target path and marks it
// executable. go-update writes to a temporary file and renames it into place,
// so the target is swapped atomically.
func (s *session) place(ctx context.Context, binaryPath string) error {
	s.logState(ctx, statePlacing)

	binaryFile, err := os.Open(filepath.Clean(binaryPath))
	if err != nil {
		return fmt.Errorf("open extracted binary: %w", err)
	}

	defer func() {
		_ = binaryFile.Close()
	}()

	// go-update moves the current target aside before swapping in the new
	// binary, so a first-time install needs the target file to exist.
	if _, err = os.Stat(s.cfg.TargetPath); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		if placeholder, err = os.Create(s.cfg.TargetPath); err != nil {
			return fmt.Errorf("create target file: %w", err)
		}

		_ = placeholder.Close()
	}

	options := goupdate.Options{
		TargetPath: s.cfg.TargetPath,
		TargetMode: config.DefaultFileMode,
	}

	if err = goupdate.Apply(binaryFile, options); err != nil {
		return fmt.Errorf("place binary: %w", err)
	}

	return nil
}

// smokeTest runs the newly placed binary's version query and checks it
// reports the requested version.
func (s *session) smokeTest(ctx context.Context) error {
	s.logState(ctx, stateSmokeTesting)

	reported, err := s.resolver.CurrentVersion(ctx)
	if err != nil {
		// A signal landing here must surface as cancellation, not as a bad
		// binary, so the interrupted exit status survives the rollback wrap.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return fmt.Errorf("%w: %w", ErrSmokeTestFailed, err)
	}

	if !reported.Equal(s.requested) {
		return fmt.Errorf("%w: binary reports %s, expected %s",
			ErrSmokeTestFailed, reported.String(), s.requested.String())
	}

	return nil
}

// finish discards the backup after a verified install.
func (s *session) finish(ctx context.Context) {
	if s.backupRec != nil {
		if err := s.backupRec.Discard(); err != nil {
			logger.WarnKV(ctx, "Could not remove backup file", "error", err)
		}

		s.backupRec = nil
	}

	logger.InfoKV(ctx, "Installed successfully",
		"version", s.requested.String(), "target", s.cfg.TargetPath)
}

// rollbackOrFail restores the previous binary when a backup exists. A restore
// failure on top of the primary failure is the unrecoverable dual-failure
// case and is reported as a distinct condition requiring manual intervention.
func (s *session) rollbackOrFail(ctx context.Context, primary error) error {
	if s.backupRec == nil {
		return primary
	}

	if restoreErr := s.backupRec.Restore(ctx); restoreErr != nil {
		return &DualFailureError{
			Primary:    primary,
			Restore:    restoreErr,
			BackupPath: s.backupRec.BackupPath,
		}
	}

	if err := s.backupRec.Discard(); err != nil {
		logger.WarnKV(ctx, "Could not remove backup file after rollback", "error", err)
	}

	s.backupRec = nil

	return fmt.Errorf("rolled back to previous version: %w", primary)
}

// cleanup removes the session directory on every exit path.
func (s *session) cleanup(ctx context.Context) {
	if s.dir == "" {
		return
	}

	if err := os.RemoveAll(s.dir); err != nil {
		logger.WarnKV(ctx, "Could not remove session directory", "dir", s.dir, "error", err)
		return
	}

	logger.DebugKV(ctx, "Removed session directory", "dir", s.dir)
}

// warnIfToolRunning scans the process list and warns when the managed binary
// appears to be running while it is about to be replaced.
func (s *session) warnIfToolRunning(ctx context.Context) {
	processes, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Could not scan process list", "error", err)
		return
	}

	binaryName := filepath.Base(s.cfg.TargetPath)
	selfPID := os.Getpid()

	for _, process := range processes {
		if process.Pid() == selfPID {
			continue
		}

		if process.Executable() == binaryName {
			logger.WarnKV(ctx, "The managed binary appears to be running and will be replaced underneath it",
				"executable", binaryName, "pid", process.Pid())

			return
		}
	}
}

// logState records a state machine transition.
func (s *session) logState(ctx context.Context, state installState) {
	logger.InfoKV(ctx, "Entering install state", "state", string(state))
}
