// Package version exposes build metadata injected via ldflags and a cobra
// subcommand that prints it. The updater's own build version is unrelated to
// the versions of the managed tool, which live in package release.
package version
