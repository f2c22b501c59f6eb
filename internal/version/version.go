// Package version reports the termfolio build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/termfolio"

// buildVersion is set via -ldflags "-X pkt.systems/termfolio/internal/version.buildVersion=...".
var buildVersion = ""

var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Version   string
	Module    string
	Revision  string
	GoVersion string
}

// String renders the info the way the version command prints it.
func (i Info) String() string {
	out := fmt.Sprintf("termfolio %s (%s, %s)", i.Version, i.Module, i.GoVersion)
	if i.Revision != "" {
		out += " rev " + i.Revision
	}
	return out
}

// Current returns the best available version string without the dirty suffix.
func Current() string {
	return Read(false).Version
}

// Read collects version details from the linker flag and the embedded build info.
func Read(includeDirty bool) Info {
	info := Info{
		Version:   "v0.0.0-unknown",
		Module:    defaultModule,
		GoVersion: runtime.Version(),
	}
	build, ok := readBuildInfo()
	if ok {
		if path := strings.TrimSpace(build.Main.Path); path != "" {
			info.Module = path
		}
		info.Revision = shortRevision(setting(build, "vcs.revision"))
	}
	switch {
	case strings.TrimSpace(buildVersion) != "":
		info.Version = trimDirty(buildVersion, includeDirty)
	case ok && build.Main.Version != "" && build.Main.Version != "(devel)":
		info.Version = trimDirty(build.Main.Version, includeDirty)
	case ok:
		if v := pseudoVersion(build, includeDirty); v != "" {
			info.Version = v
		}
	}
	return info
}

func trimDirty(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

func setting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// pseudoVersion builds a go-style pseudo version from the vcs stamps.
func pseudoVersion(info *debug.BuildInfo, includeDirty bool) string {
	if info == nil {
		return ""
	}
	revision := setting(info, "vcs.revision")
	stamp := setting(info, "vcs.time")
	if revision == "" || stamp == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + shortRevision(revision)
	if includeDirty && setting(info, "vcs.modified") == "true" {
		ver += "+dirty"
	}
	return ver
}
