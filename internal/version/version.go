package version

import "fmt"

var (
	// Version is the hawk-updater release version. Release builds override it
	// via ldflags from the git tag.
	Version = "0.1.0"
	// Commit is the short git SHA of the build, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC timestamp stamped at build time.
	BuildTime = "unknown"
)

// Short returns only the release version string.
func Short() string {
	return Version
}

// Full returns the release version with its commit and build timestamp.
func Full() string {
	return fmt.Sprintf("hawk-updater %s (commit %s, built %s)", Version, Commit, BuildTime)
}
