// Package misc holds build time information about the program.
package misc

import (
	"runtime/debug"
)

const appName = "pagestyle"

// Set with -ldflags "-X pagestyle/misc.version=... -X pagestyle/misc.githash=..."
var (
	version = "dev"
	githash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit hash program was built from. When it was not
// provided at link time VCS information recorded by go build is used.
func GetGitHash() string {
	if githash != "" {
		return githash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
