// Package version holds build information injected at link time.
package version

// Populated via -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
