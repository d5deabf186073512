package updater

import (
	"context"
	"errors"

	"github.com/oshokin/hawk-updater/internal/config"
	"github.com/oshokin/hawk-updater/internal/logger"
	"github.com/oshokin/hawk-updater/internal/release"
)

// Status reports the installed version and the newest published versions.
// It mutates nothing.
func Status(ctx context.Context, cfg *config.Config) error {
	ctx = logger.WithName(ctx, "hawk-updater")

	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	resolver := release.NewResolver(cfg)

	current, err := resolver.CurrentVersion(ctx)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Installed version", "version", current.String(), "target", cfg.TargetPath)
	case errors.Is(err, release.ErrNotInstalled):
		logger.InfoKV(ctx, "Not installed", "target", cfg.TargetPath)
	default:
		logger.WarnKV(ctx, "Installed binary did not report a parseable version", "target", cfg.TargetPath)
	}

	latest := resolver.ListLatest(ctx, cfg.LatestCount)
	if len(latest) == 0 {
		logger.Warn(ctx, "No published versions could be listed from the release host")
		return nil
	}

	for _, v := range latest {
		logger.InfoKV(ctx, "Available version", "version", v.String())
	}

	return nil
}
