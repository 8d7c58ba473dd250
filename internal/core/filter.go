package core

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Filter is the month/year constraint applied to listing and summary
// queries. Zero values mean "not set".
type Filter struct {
	Month int
	Year  int
}

// ParseFilter reads widget values. Empty strings leave the field unset; a
// supplied value must be a real month or a positive year.
func ParseFilter(month, year string) (Filter, error) {
	var f Filter
	if v := strings.TrimSpace(month); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 {
			return Filter{}, ErrInvalidMonth
		}
		f.Month = m
	}
	if v := strings.TrimSpace(year); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return Filter{}, ErrInvalidYear
		}
		f.Year = y
	}
	return f, f.Validate()
}

// Validate checks the set fields. Zero means unset and is accepted.
func (f Filter) Validate() error {
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		return ErrInvalidMonth
	}
	if f.Year < 0 {
		return ErrInvalidYear
	}
	return nil
}

// IsZero reports whether no constraint is set.
func (f Filter) IsZero() bool {
	return f.Month == 0 && f.Year == 0
}

// Query returns only the parameters that are set.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Month != 0 {
		q.Set("month", strconv.Itoa(f.Month))
	}
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	return q
}

// Years returns the distinct years of the given transactions, newest first.
func Years(ts []Transaction) []int {
	seen := make(map[int]struct{}, len(ts))
	out := make([]int, 0, len(ts))
	for _, t := range ts {
		if t.Date.IsZero() {
			continue
		}
		y := t.Date.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
