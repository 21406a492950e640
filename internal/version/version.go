// Package version reports build information.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set via -ldflags "-X solarman/internal/version.Version=..." at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified"`
}

// Get collects ldflags values and the VCS stamp embedded by the toolchain
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// Short is the version plus abbreviated revision, e.g. "1.2.0 (3f2a9c1d)"
func (i Info) Short() string {
	if i.Revision == "" {
		return i.Version
	}
	rev := i.Revision
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if i.Modified {
		rev += "+dirty"
	}
	return fmt.Sprintf("%s (%s)", i.Version, rev)
}

// String returns a one-line summary for startup logs
func (i Info) String() string {
	parts := []string{"version " + i.Short()}
	if i.BuildTime != "unknown" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	return strings.Join(parts, ", ")
}

// Warning is non-empty for builds that cannot be traced to a commit
func (i Info) Warning() string {
	if i.Modified {
		return "binary built from modified source tree"
	}
	if i.Revision == "" && i.Version == "dev" {
		return "development build without version control information"
	}
	return ""
}
