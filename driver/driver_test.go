package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/driver/script"
)

func TestEchoReportsWhatItWasGiven(t *testing.T) {
	e := NewEcho(zaptest.NewLogger(t).Sugar())

	got, err := e.CaptureFeedback(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, e.Dispatch(context.Background(), "064 111 222"))
	got, err = e.CaptureFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "064 111 222", got)
}

func TestNewSelectsDriver(t *testing.T) {
	d, err := New(config.DriverConfig{Kind: config.DriverEcho}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Echo{}, d)

	steps := filepath.Join(t.TempDir(), "steps.toml")
	require.NoError(t, os.WriteFile(steps, []byte("[[step]]\nrun = \"true\"\n"), 0644))
	d, err = New(config.DriverConfig{Kind: config.DriverScript, Script: steps}, nil)
	require.NoError(t, err)
	assert.IsType(t, &script.Driver{}, d)

	_, err = New(config.DriverConfig{Kind: config.DriverScript, Script: filepath.Join(t.TempDir(), "none.toml")}, nil)
	assert.Error(t, err)

	_, err = New(config.DriverConfig{Kind: "robot"}, nil)
	assert.Error(t, err)
}
