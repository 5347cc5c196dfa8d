package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata as a single line for -version output
// and the startup log.
func String() string {
	return fmt.Sprintf("crt-reco %s (git %s, built %s)", Version, GitSHA, BuildTime)
}
