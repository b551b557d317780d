// Package phone canonicalizes phone numbers into comparable keys.
//
// Normalization is digit-stripping only: every character that is not an
// ASCII digit is removed. There is no country-code or leading-zero handling,
// so "+1 555 010 1111" and "555 010 1111" produce different keys.
package phone

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Key is the digits-only canonical form of a phone number.
type Key string

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }

// Normalize strips every non-digit from raw.
// It reports false when no digits remain; the empty Key is never a valid key.
func Normalize(raw string) (Key, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return Key(b.String()), true
}

// NormalizeValue normalizes a scalar read from a tabular source.
// nil and nil pointers are the missing-value sentinel and yield no key.
// Floats holding whole numbers are rendered without a fractional part, so a
// spreadsheet cell 5550101111.0 normalizes the same as the text "5550101111".
func NormalizeValue(v interface{}) (Key, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return Normalize(val)
	case *string:
		if val == nil {
			return "", false
		}
		return Normalize(*val)
	case float64:
		return normalizeFloat(val)
	case float32:
		return normalizeFloat(float64(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Normalize(fmt.Sprintf("%d", val))
	case fmt.Stringer:
		return Normalize(val.String())
	default:
		return Normalize(fmt.Sprintf("%v", val))
	}
}

func normalizeFloat(f float64) (Key, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == math.Trunc(f) {
		return Normalize(strconv.FormatFloat(f, 'f', 0, 64))
	}
	return Normalize(strconv.FormatFloat(f, 'f', -1, 64))
}

// LooksLikePhone reports whether raw normalizes to a plausible phone length.
func LooksLikePhone(raw string) bool {
	key, ok := Normalize(raw)
	return ok && len(key) >= MinDigits && len(key) <= MaxDigits
}

// Plausible digit counts for a phone number, used by column detection.
const (
	MinDigits = 6
	MaxDigits = 15
)
