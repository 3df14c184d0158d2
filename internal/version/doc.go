// Package version exposes build metadata for alarm-scheduler and alarm-ctl.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags; Commit and BuildTime fall back to the VCS stamp of the build.
package version
