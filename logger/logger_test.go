package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 0},
		{name: "Console output mode", jsonOutput: false, verbosity: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput, tt.verbosity))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Cleanup()
			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(9))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
}

func TestShouldOutput(t *testing.T) {
	assert.True(t, ShouldOutput(VerbosityUser, OutputUserStatus))
	assert.False(t, ShouldOutput(VerbosityUser, OutputProgress))
	assert.True(t, ShouldOutput(VerbosityInfo, OutputProgress))
	assert.False(t, ShouldOutput(VerbosityInfo, OutputTransitions))
	assert.True(t, ShouldOutput(VerbosityDebug, OutputTransitions))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithComponent(ctx, "runner")

	FromContext(ctx, base).Infow("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-1", fields[FieldRunID])
	assert.Equal(t, "runner", fields[FieldComponent])
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Empty(t, RunIDFromContext(context.Background()))
}
