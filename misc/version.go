// Package misc keeps application identity helpers in one place so they can be
// used from any other package without import cycles.
package misc

import (
	"runtime/debug"
)

const appName = "proxysift"

// GetAppName returns short program name used in logs, temp files and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns module version as recorded by the build system.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) > 0 {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns VCS revision recorded by the build system, empty string
// when built outside of repository.
func GetGitHash() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var hash, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			hash = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = "-dirty"
			}
		}
	}
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return hash + modified
}
