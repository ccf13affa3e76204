package query

import (
	"sort"

	"refstats/internal/index"
)

// DailyRow is one day of the revenue/funnel time series. Days without data
// are emitted with zero values so charts render contiguous ranges.
type DailyRow struct {
	Day            string  `json:"day"`
	FeeUSD         float64 `json:"fee_usd"`
	VolumeUSD      float64 `json:"volume_usd"`
	RevenueTxCount int64   `json:"revenue_tx_count"`
	Signups        int64   `json:"signups"`
	KYCUsers       int64   `json:"kyc_users"`
	FirstTxUsers   int64   `json:"first_tx_users"`
}

func DailySeries(ix *index.Index, code string, r Range) []DailyRow {
	days := daysOf(r)
	rows := make([]DailyRow, 0, len(days))

	agg := lookup(ix, code)
	for _, day := range days {
		row := DailyRow{Day: day}
		if agg != nil {
			if stat, ok := agg.Buckets.Daily[day]; ok {
				row.FeeUSD = stat.FeeUSD
				row.VolumeUSD = stat.VolumeUSD
				row.RevenueTxCount = stat.RevenueTxCount
			}
			row.Signups = agg.SignupsByDate[day]
			row.KYCUsers = agg.KYCByDate[day]
			row.FirstTxUsers = agg.FirstTxByDate[day]
		}
		rows = append(rows, row)
	}
	return rows
}

// GroupRow is one human-facing category group summed over the range.
type GroupRow struct {
	Group     string  `json:"group"`
	FeeUSD    float64 `json:"fee_usd"`
	VolumeUSD float64 `json:"volume_usd"`
	TxCount   int64   `json:"tx_count"`
}

// CategoryBreakdown regroups raw categories into the fixed taxonomy and sums
// them over the range. Unrecognized raw categories are dropped from this
// grouped view; RawCategoryTotals keeps them.
func CategoryBreakdown(ix *index.Index, code string, r Range) []GroupRow {
	agg := lookup(ix, code)
	if agg == nil {
		return nil
	}

	byGroup := make(map[string]*GroupRow)
	for day, cats := range agg.Buckets.FeeByCategoryDaily {
		if !r.Contains(day) {
			continue
		}
		for raw, stat := range cats {
			group, ok := GroupCategory(raw)
			if !ok {
				continue
			}
			row := byGroup[group]
			if row == nil {
				row = &GroupRow{Group: group}
				byGroup[group] = row
			}
			row.FeeUSD += stat.Value
			row.TxCount += stat.Count
		}
	}
	for day, cats := range agg.Buckets.VolumeByCategoryDaily {
		if !r.Contains(day) {
			continue
		}
		for raw, stat := range cats {
			group, ok := GroupCategory(raw)
			if !ok {
				continue
			}
			row := byGroup[group]
			if row == nil {
				row = &GroupRow{Group: group}
				byGroup[group] = row
			}
			row.VolumeUSD += stat.Value
		}
	}

	rows := make([]GroupRow, 0, len(byGroup))
	for _, row := range byGroup {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FeeUSD != rows[j].FeeUSD {
			return rows[i].FeeUSD > rows[j].FeeUSD
		}
		return rows[i].Group < rows[j].Group
	})
	return rows
}

// RawCategoryTotals sums raw (ungrouped) categories over the range, keeping
// categories the taxonomy does not recognize.
func RawCategoryTotals(ix *index.Index, code string, r Range) []GroupRow {
	agg := lookup(ix, code)
	if agg == nil {
		return nil
	}

	byCat := make(map[string]*GroupRow)
	for day, cats := range agg.Buckets.FeeByCategoryDaily {
		if !r.Contains(day) {
			continue
		}
		for raw, stat := range cats {
			row := byCat[raw]
			if row == nil {
				row = &GroupRow{Group: raw}
				byCat[raw] = row
			}
			row.FeeUSD += stat.Value
			row.TxCount += stat.Count
		}
	}
	for day, cats := range agg.Buckets.VolumeByCategoryDaily {
		if !r.Contains(day) {
			continue
		}
		for raw, stat := range cats {
			row := byCat[raw]
			if row == nil {
				row = &GroupRow{Group: raw}
				byCat[raw] = row
			}
			row.VolumeUSD += stat.Value
		}
	}

	rows := make([]GroupRow, 0, len(byCat))
	for _, row := range byCat {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FeeUSD != rows[j].FeeUSD {
			return rows[i].FeeUSD > rows[j].FeeUSD
		}
		return rows[i].Group < rows[j].Group
	})
	return rows
}

// TokenRow is one token symbol summed over the range.
type TokenRow struct {
	Symbol    string  `json:"symbol"`
	VolumeUSD float64 `json:"volume_usd"`
	TxCount   int64   `json:"tx_count"`
}

func TokenBreakdown(ix *index.Index, code string, r Range) []TokenRow {
	agg := lookup(ix, code)
	if agg == nil {
		return nil
	}

	bySym := make(map[string]*TokenRow)
	for day, tokens := range agg.Buckets.TokenVolumeDaily {
		if !r.Contains(day) {
			continue
		}
		for sym, stat := range tokens {
			row := bySym[sym]
			if row == nil {
				row = &TokenRow{Symbol: sym}
				bySym[sym] = row
			}
			row.VolumeUSD += stat.VolumeUSD
			row.TxCount += stat.TxCount
		}
	}

	rows := make([]TokenRow, 0, len(bySym))
	for _, row := range bySym {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VolumeUSD != rows[j].VolumeUSD {
			return rows[i].VolumeUSD > rows[j].VolumeUSD
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}
