package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, bi *debug.BuildInfo, version, commit string) {
	t.Helper()
	origRead, origVersion, origCommit, origTime := readBuildInfo, Version, GitCommit, BuildTime
	t.Cleanup(func() {
		readBuildInfo, Version, GitCommit, BuildTime = origRead, origVersion, origCommit, origTime
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	Version, GitCommit, BuildTime = version, commit, ""
}

func TestGet(t *testing.T) {
	vcs := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc1234567890"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name    string
		bi      *debug.BuildInfo
		version string
		commit  string
		want    Info
		str     string
	}{
		{
			name: "no build info",
			want: Info{Version: "dev"},
			str:  "dev",
		},
		{
			name: "development build",
			bi:   &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: Info{Version: "dev"},
			str:  "dev",
		},
		{
			name: "embedded vcs settings",
			bi:   vcs,
			want: Info{Version: "v0.4.0", Commit: "abc1234567890", BuildTime: "2026-01-02T03:04:05Z", Dirty: true},
			str:  "v0.4.0 (commit abc1234, dirty)",
		},
		{
			name:    "ldflags win",
			bi:      vcs,
			version: "v1.2.3",
			commit:  "fff0000",
			want:    Info{Version: "v1.2.3", Commit: "fff0000", BuildTime: "2026-01-02T03:04:05Z", Dirty: true},
			str:     "v1.2.3 (commit fff0000, dirty)",
		},
		{
			name:    "commit already in version",
			version: "v1.2.3-abc1234",
			commit:  "abc1234",
			want:    Info{Version: "v1.2.3-abc1234", Commit: "abc1234"},
			str:     "v1.2.3-abc1234",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuild(t, tt.bi, tt.version, tt.commit)
			got := Get()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc1234", Info{Commit: "abc1234567"}.ShortCommit())
	assert.Equal(t, "abc", Info{Commit: "abc"}.ShortCommit())
	assert.Empty(t, Info{}.ShortCommit())
}
