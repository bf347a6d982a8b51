// Package version reports the build stamp of the sejmcollect binary
package version

import "fmt"

// Stamped at link time:
//
//	go build -ldflags "-X sejmcollect/internal/core/version.version=v1.2.0 -X sejmcollect/internal/core/version.commit=$(git rev-parse --short HEAD) -X sejmcollect/internal/core/version.date=$(date -u +%F)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// BuildInfo is the stamp of the running binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the stamp
func Info() BuildInfo {
	return BuildInfo{Service: "sejmcollect", Version: version, Commit: commit, Date: date}
}

// String renders the one-line form used by --version
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", b.Version, b.Commit, b.Date)
}
