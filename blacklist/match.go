// Package blacklist removes blacklisted numbers from contact lists.
package blacklist

import (
	"sort"

	"github.com/teranos/callsheet/phone"
)

// Set is a set of normalized phone keys. It is built fresh for every run
// and never written to disk.
type Set map[phone.Key]struct{}

// NewSet normalizes raw values into a Set; values without digits are skipped.
func NewSet(raw []string) Set {
	s := make(Set, len(raw))
	for _, r := range raw {
		if key, ok := phone.Normalize(r); ok {
			s[key] = struct{}{}
		}
	}
	return s
}

// Contains reports whether key is blacklisted. The empty key never is.
func (s Set) Contains(key phone.Key) bool {
	if key == "" {
		return false
	}
	_, ok := s[key]
	return ok
}

// Len returns the number of distinct keys
func (s Set) Len() int { return len(s) }

// Keys returns the keys in ascending order
func (s Set) Keys() []phone.Key {
	keys := make([]phone.Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Result partitions a contact list against a blacklist.
type Result struct {
	Matched            Set   // distinct keys found on the blacklist
	ExcludedRowIndices []int // ascending positions of matched rows in the input
}

// DefaultPrefixDigits is how many extra leading digits, such as a country
// code, one side of a comparison may carry when an exact key is not
// blacklisted.
const DefaultPrefixDigits = 3

// minNationalDigits is the shortest key compared against a longer one
const minNationalDigits = 7

// Match finds which of values are blacklisted, using DefaultPrefixDigits.
func Match(values []string, blacklist Set) Result {
	return MatchPrefix(values, blacklist, DefaultPrefixDigits)
}

// MatchPrefix finds which of values are blacklisted. Values are normalized the
// same way as the blacklist; values without digits never match.
//
// A value whose key is not on the blacklist still matches when one of the two
// keys is the other with up to prefixDigits extra leading digits, so
// "+1 555 010 1111" matches "5550101111". Only one side may carry extra
// digits: numbers that merely share their last digits do not match. A
// contact's single leading trunk zero may also be dropped before comparing
// against a blacklisted key with a country code. The shorter key needs at
// least 7 digits. prefixDigits 0 compares exact keys only.
//
// Matched holds the blacklisted keys that were hit.
func MatchPrefix(values []string, blacklist Set, prefixDigits int) Result {
	var extended map[phone.Key]phone.Key
	if prefixDigits > 0 {
		extended = blacklist.extensionIndex(prefixDigits)
	}

	res := Result{Matched: make(Set)}
	for i, v := range values {
		key, ok := phone.Normalize(v)
		if !ok {
			continue
		}
		hit, ok := blacklist.lookup(key, prefixDigits, extended)
		if !ok {
			continue
		}
		res.Matched[hit] = struct{}{}
		res.ExcludedRowIndices = append(res.ExcludedRowIndices, i)
	}
	return res
}

// lookup finds the blacklisted key that key matches. extended maps a
// shortened blacklisted key back to the full one.
func (s Set) lookup(key phone.Key, prefixDigits int, extended map[phone.Key]phone.Key) (phone.Key, bool) {
	if s.Contains(key) {
		return key, true
	}
	if prefixDigits <= 0 {
		return "", false
	}

	// The contact carries the extra digits
	for p := 1; p <= prefixDigits && len(key)-p >= minNationalDigits; p++ {
		if k := key[p:]; s.Contains(k) {
			return k, true
		}
	}

	// The blacklisted key carries them
	if b, ok := extended[key]; ok {
		return b, true
	}
	if key[0] == '0' {
		if b, ok := extended[key[1:]]; ok {
			return b, true
		}
	}
	return "", false
}

// extensionIndex maps each blacklisted key with 1 to n leading digits dropped
// back to the key. On collisions the smallest key wins.
func (s Set) extensionIndex(n int) map[phone.Key]phone.Key {
	idx := make(map[phone.Key]phone.Key)
	for b := range s {
		for p := 1; p <= n && len(b)-p >= minNationalDigits; p++ {
			short := b[p:]
			if prev, ok := idx[short]; !ok || b < prev {
				idx[short] = b
			}
		}
	}
	return idx
}

// Split partitions rows into kept and removed, both in original order.
// Indices outside rows are ignored.
func Split(rows [][]string, excluded []int) (kept, removed [][]string) {
	drop := make(map[int]bool, len(excluded))
	for _, i := range excluded {
		drop[i] = true
	}

	kept = make([][]string, 0, len(rows))
	removed = make([][]string, 0, len(excluded))
	for i, row := range rows {
		if drop[i] {
			removed = append(removed, row)
		} else {
			kept = append(kept, row)
		}
	}
	return kept, removed
}
