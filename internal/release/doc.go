// Package release models versions of the managed tool and resolves them
// against the installed binary and the upstream release host: strict grammar
// validation, ordering, the installed binary's self-reported version, the
// newest published versions, and per-version existence probes.
package release
