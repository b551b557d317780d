package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control WHAT categories of output are shown, not just log severity.
//
//	if logger.ShouldOutput(verbosity, logger.OutputProgress) {
//	    pterm.Info.Println("next contact copied")
//	}
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + per-contact progress, config summary
	VerbosityDebug = 2 // -vv: + state transitions, timing, SQL
)

// VerbosityToLevel maps verbosity flags (-v, -vv) to zap log levels
//
//	0 (none)  -> WarnLevel
//	1 (-v)    -> InfoLevel
//	2+ (-vv)  -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelName returns a human-readable name for verbosity level
func LevelName(verbosity int) string {
	switch {
	case verbosity <= VerbosityUser:
		return "User"
	case verbosity == VerbosityInfo:
		return "Info (-v)"
	default:
		return "Debug (-vv)"
	}
}

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Command results, summaries
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Mismatch warnings, final status

	// Level 1 (-v)
	OutputProgress // Per-contact narration
	OutputConfig   // Config values loaded/applied

	// Level 2 (-vv)
	OutputTransitions // Runner state transitions
	OutputTiming      // Delays and durations
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:     VerbosityUser,
	OutputErrors:      VerbosityUser,
	OutputUserStatus:  VerbosityUser,
	OutputProgress:    VerbosityInfo,
	OutputConfig:      VerbosityInfo,
	OutputTransitions: VerbosityDebug,
	OutputTiming:      VerbosityDebug,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityDebug
	}
	return verbosity >= minLevel
}
