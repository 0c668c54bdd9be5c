// Package buildinfo exposes build-time information injected via
// ldflags: version, commit, build timestamp, and Go version.
package buildinfo
