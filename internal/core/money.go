// Package core provides the budget domain types.
//
// This file contains amount parsing for form input.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts form input to a float the way a number field does.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Range checks are left to the caller; only unparseable or non-finite
// input is rejected.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,5")  -> 12.5, nil
//   ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
