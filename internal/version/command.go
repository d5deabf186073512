package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand to the root command
// that prints the updater's own build metadata. This is the updater's version,
// not the managed binary's; the latter is reported by the status mode.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the updater's version.",
		Long:  "Print the updater's release version, commit hash and build timestamp as stamped by the release build.",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
