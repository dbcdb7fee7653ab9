// Package versions exposes build-time version information for gcgit.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version information set via ldflags at build time.
var (
	// Version is the current version of gcgit, set during build
	Version = "dev"
	// Commit is the git commit hash, set during build
	Commit = "unknown"
	// BuildDate is the date the binary was built, set during build
	BuildDate = "unknown"
)

// VersionInfo contains version information about gcgit
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information, filling in whatever the
// module build info can provide when ldflags were not set.
func GetVersionInfo() VersionInfo {
	version := Version
	commit := Commit

	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if commit == "unknown" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
