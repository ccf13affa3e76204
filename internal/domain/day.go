package domain

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// NormalizeWallet lower-cases an address so customer rows and transaction
// records join on the same key.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// DayFromMillis converts an epoch-ms timestamp to its UTC day key.
func DayFromMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(dayLayout)
}

// ParseDay validates a "YYYY-MM-DD" key.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns every day key in [start, end] inclusive, in order.
// Returns nil when either bound is malformed or start > end.
func DaysBetween(start, end string) []string {
	from, err := ParseDay(start)
	if err != nil {
		return nil
	}
	to, err := ParseDay(end)
	if err != nil {
		return nil
	}

	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayLayout))
	}
	return days
}

// InRange reports whether a day key falls inside [start, end]. Day keys are
// lexicographically comparable, the sentinel InvalidDay never matches.
func InRange(day, start, end string) bool {
	if day == "" || day == InvalidDay {
		return false
	}
	return day >= start && day <= end
}

// PairKey builds the canonical "FROM→TO" swap pair key.
func PairKey(from, to string) string {
	return from + "→" + to
}
