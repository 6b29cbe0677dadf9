// Package version reports which build of template-tag is running.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time via -ldflags "-X bennypowers.dev/templatetag/internal/version.Version=v1.0.0"
var (
	Version   = ""
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running build
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Dirty     bool
}

// readBuildInfo is swapped out in tests
var readBuildInfo = debug.ReadBuildInfo

// Get returns the build information. Values set with ldflags win over what
// the Go toolchain embedded in the binary.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildTime,
	}

	if bi, ok := readBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// ShortCommit is the first seven characters of the commit hash
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

func (i Info) String() string {
	var extra []string
	if c := i.ShortCommit(); c != "" && !strings.Contains(i.Version, c) {
		extra = append(extra, "commit "+c)
	}
	if i.Dirty {
		extra = append(extra, "dirty")
	}
	if len(extra) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(extra, ", "))
}
