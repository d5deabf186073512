// Package fetch downloads release artifacts into the install session's
// temporary directory with bounded, linearly backed-off retries.
package fetch
