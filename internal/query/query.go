// Package query computes range-bounded metrics from a frozen analytics
// index. Everything here is read-only: safe to call concurrently and
// repeatedly once ingestion has finished.
package query

import (
	"refstats/internal/domain"
	"refstats/internal/index"
)

// Range is an inclusive [Start, End] day-key window.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r Range) Contains(day string) bool {
	return domain.InRange(day, r.Start, r.End)
}

// lookup resolves an aggregate without creating one; queries on unknown
// codes see an empty aggregate, never a lazily created entry.
func lookup(ix *index.Index, code string) *index.ReferralAggregate {
	if code == domain.CodeAll {
		return ix.Global
	}
	return ix.Aggregates[code]
}

func daysOf(r Range) []string {
	return domain.DaysBetween(r.Start, r.End)
}

func sumCounts(m map[string]int64, r Range) int64 {
	var total int64
	for day, n := range m {
		if r.Contains(day) {
			total += n
		}
	}
	return total
}
