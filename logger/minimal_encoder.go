package logger

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	time      string
	component string
	value     string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

var palettes = map[string]palette{
	// Everforest Dark
	"everforest": {
		time:      "\x1b[38;5;107m",
		component: "\x1b[38;5;108m",
		value:     "\x1b[38;5;109m",
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
	// Gruvbox Dark
	"gruvbox": {
		time:      "\x1b[38;5;108m",
		component: "\x1b[38;5;208m",
		value:     "\x1b[38;5;175m",
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
	// No colour, for log files and dumb terminals
	"plain": {},
}

var currentTheme = "everforest"

var bufferPool = buffer.NewPool()

// SetTheme configures the color scheme for console output.
// Unknown themes are ignored.
func SetTheme(theme string) {
	if _, ok := palettes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return palettes[currentTheme]
}

// paint wraps s in color unless the palette is plain.
func paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + colorReset
}

// minimalEncoder implements a compact console encoder.
// Format: "13:04:35  WARN  runner  verification mismatch  expected=111 observed=112"
// Fields attached with With() accumulate in the embedded map encoder and are
// rendered before the entry's own fields.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return &minimalEncoder{MapObjectEncoder: clone}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := bufferPool.Get()

	final.AppendString(paint(c.time, ent.Time.Format("15:04:05")))

	if lvl := levelString(ent.Level, c); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(paint(c.component, ent.LoggerName))
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	if rendered := renderContext(enc.Fields, c); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	if rendered := renderFields(fields, c); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

// levelString returns bold + colored + background for WARN/ERROR, and a plain tag for DEBUG
func levelString(level zapcore.Level, c palette) string {
	switch level {
	case zapcore.InfoLevel:
		return ""
	case zapcore.DebugLevel:
		return "DEBUG"
	case zapcore.WarnLevel:
		if c.warn == "" {
			return "WARN"
		}
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	default:
		if c.err == "" {
			return level.CapitalString()
		}
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

// fieldValue extracts the value from a zap field, handling the common field types
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.Float64Type:
		return strconv.FormatFloat(math.Float64frombits(uint64(field.Integer)), 'g', -1, 64)
	case zapcore.Float32Type:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(field.Integer))), 'g', -1, 32)
	case zapcore.DurationType:
		return fmt.Sprintf("%dms", field.Integer/1e6)
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// renderFields formats fields as key=value pairs in declaration order
func renderFields(fields []zapcore.Field, c palette) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		val := fieldValue(field)
		if val == "" {
			continue
		}
		if strings.ContainsAny(val, " \t") {
			val = fmt.Sprintf("%q", val)
		}
		parts = append(parts, field.Key+"="+paint(c.value, val))
	}
	return strings.Join(parts, " ")
}

// renderContext formats accumulated With() fields sorted by key
func renderContext(ctx map[string]interface{}, c palette) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+paint(c.value, fmt.Sprintf("%v", ctx[k])))
	}
	return strings.Join(parts, " ")
}
