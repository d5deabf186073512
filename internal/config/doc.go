// Package config defines the updater's compiled-in defaults, flag-overridable
// parameters, and the version-parameterized URL templates of the release host.
package config
