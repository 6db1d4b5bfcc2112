package version

import "fmt"

var (
	// Version is overridden via -ldflags "-X .../internal/version.Version=...".
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("sensor-watchdog %s (commit %s, built %s)", Version, Commit, BuildTime)
}
