package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/hawk-updater/internal/config"
	"github.com/oshokin/hawk-updater/internal/logger"
	"github.com/oshokin/hawk-updater/internal/service/updater"
	"github.com/oshokin/hawk-updater/internal/version"
)

const (
	// exitFailure is returned for any validation, network, verification or
	// install failure.
	exitFailure = 1
	// exitInterrupted is returned when a signal interrupted the attempt.
	exitInterrupted = 130
)

var (
	// releaseHost overrides the release host base URL.
	releaseHost string
	// targetPath overrides the installed binary path.
	targetPath string
	// logLevel sets the minimum severity for console and file logs.
	logLevel string

	// rootCmd represents the base command for installing versions of hawk.
	rootCmd = &cobra.Command{
		Use:   "hawk-updater [version]",
		Short: "Install or update the hawk binary from the release host.",
		Long: `Resolve, download, verify and atomically install a version of hawk.

With a version argument, that exact version is validated, fetched as a
platform-specific archive, checksum-verified, and swapped into place with a
timestamped backup of the previous binary; any failure after the first
mutation rolls the previous binary back.

Without arguments, the current installed version and the newest published
versions are printed and nothing is mutated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			setupLogger(ctx)

			cfg := config.Default()
			if releaseHost != "" {
				cfg.ReleaseHost = releaseHost
			}

			if targetPath != "" {
				cfg.TargetPath = targetPath
			}

			if len(args) == 0 {
				return updater.Status(ctx, cfg)
			}

			return updater.Run(ctx, &updater.Options{
				Version: args[0],
				Config:  cfg,
			})
		},
	}
)

// Execute runs the hawk-updater CLI, mapping failures to exit codes:
// 0 success or informational no-op, 1 any failure, 130 interrupted by signal.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()
	if err == nil {
		return
	}

	logger.ErrorKV(context.Background(), "hawk-updater failed", "error", err)

	if errors.Is(err, context.Canceled) {
		os.Exit(exitInterrupted)
	}

	os.Exit(exitFailure)
}

// setupLogger installs the global logger with the append-only file sink.
// A file sink failure degrades to console-only logging.
func setupLogger(ctx context.Context) {
	if level, ok := logger.ParseLogLevel(logLevel); ok {
		logger.SetLevel(level)
	}

	l, err := logger.NewWithFile(nil, config.DefaultLogFilename)
	if err != nil {
		logger.WarnKV(ctx, "Could not open log file, logging to console only",
			"path", config.DefaultLogFilename, "error", err)

		return
	}

	logger.SetLogger(l)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVar(&releaseHost, "release-host", "", "override the release host base URL")
	rootCmd.Flags().StringVar(&targetPath, "target", "", "override the installed binary path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
