// Package version carries the build fingerprint of the diagtest CLI.
package version

import (
	"runtime/debug"

	"github.com/fatih/color"
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0") + "-dev"

	// GitCommit and BuildDate are set via
	// -ldflags "-X diagtest/internal/version.GitCommit=...". When left
	// empty they fall back to the VCS stamp embedded by the Go linker.
	GitCommit = ""
	BuildDate = ""
)

func init() {
	fillFromBuildInfo(debug.ReadBuildInfo())
}

func fillFromBuildInfo(info *debug.BuildInfo, ok bool) {
	if !ok || info == nil {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "" {
				GitCommit = s.Value
			}
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
}
