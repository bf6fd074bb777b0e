// Package version carries build metadata set with -ldflags.
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

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("vehicle-history %s (%s, built %s)", Version, GitSHA, BuildTime)
}
