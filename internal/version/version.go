// Package version provides build-time version information.
// The variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/adsharma/truth-serum/internal/version.Version=1.2.0" ./cmd/truth
package version

import "fmt"

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// GitCommit is the short git commit hash
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format
	BuildTime = "unknown"
)

// VersionInfo holds all version-related information
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
}

// Info returns all version information as a struct
func Info() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("truth %s (commit %s, built %s)", v.Version, v.GitCommit, v.BuildTime)
}
