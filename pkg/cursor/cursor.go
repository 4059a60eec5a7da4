// Package cursor compares provider history cursors.
//
// Cursors are decimal strings of arbitrary width. They are compared
// numerically, never lexically. Empty or malformed cursors sort below any
// valid cursor.
package cursor

import (
	"math/big"
	"strings"
)

func Parse(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

func Valid(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Compare returns -1, 0 or 1.
func Compare(a, b string) int {
	na, okA := Parse(a)
	nb, okB := Parse(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return na.Cmp(nb)
}

func Max(a, b string) string {
	if Compare(b, a) > 0 {
		return strings.TrimSpace(b)
	}
	if !Valid(a) {
		return ""
	}
	return strings.TrimSpace(a)
}

func FromUint(v uint64) string {
	if v == 0 {
		return ""
	}
	return new(big.Int).SetUint64(v).String()
}
