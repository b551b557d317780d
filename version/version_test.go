package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyBuildSettings(t *testing.T) {
	info := Info{CommitHash: "dev", BuildTime: "unknown", Version: "dev"}
	applyBuildSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	assert.Equal(t, "0123456789abcdef", info.CommitHash)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildTime)
	assert.True(t, info.Modified)
	assert.Equal(t, "callsheet dev (commit 0123456+dirty, built 2026-10-01T12:00:00Z)", info.String())
}

func TestLdflagsWinOverBuildSettings(t *testing.T) {
	info := Info{CommitHash: "feedface", BuildTime: "yesterday", Version: "v1.0.0"}
	applyBuildSettings(&info, []debug.BuildSetting{{Key: "vcs.revision", Value: "other"}})

	assert.Equal(t, "feedface", info.CommitHash)
	assert.Equal(t, "feedfac", info.Short())
}

func TestShortKeepsShortHashes(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}
