package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (set via ldflags at build time)
	Version = "dev"
	// GitCommit is the git SHA (set via ldflags at build time)
	GitCommit = "unknown"
	// BuildDate is the build date (set via ldflags at build time)
	BuildDate = "unknown"
)

// GetVersion returns the full version information
func GetVersion() string {
	return fmt.Sprintf("chainHTTP %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildDate, runtime.Version())
}

// UserAgent is the default User-Agent sent with every probe
func UserAgent() string {
	return fmt.Sprintf("chainHTTP/%s (+redirect chain resolver; %s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
