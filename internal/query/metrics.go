package query

import (
	"sort"

	"refstats/internal/domain"
	"refstats/internal/index"
)

const msPerDay = 24 * 60 * 60 * 1000

// ReferralMetrics is the funnel readout for one code over a date range.
// Every rate field defaults to 0 on a zero denominator, never NaN.
type ReferralMetrics struct {
	Code  string `json:"code"`
	Range Range  `json:"range"`

	Signups      int64 `json:"signups"`
	KYCUsers     int64 `json:"kyc_users"`
	FirstTxUsers int64 `json:"first_tx_users"`

	FeeUSD         float64 `json:"fee_usd"`
	VolumeUSD      float64 `json:"volume_usd"`
	RevenueTxCount int64   `json:"revenue_tx_count"`

	UsersWithRevenueTx int64 `json:"users_with_revenue_tx"`
	RetainedUsers      int64 `json:"retained_users"`

	ConversionRate          float64 `json:"conversion_rate"`
	FeePerUser              float64 `json:"fee_per_user"`
	Retention30d            float64 `json:"retention_30d"`
	KYCRate                 float64 `json:"kyc_rate"`
	TimeToFirstTxMedianDays float64 `json:"time_to_first_tx_median_days"`
}

// Metrics computes the funnel for a code; domain.CodeAll resolves to the
// global aggregate.
func Metrics(ix *index.Index, code string, r Range) ReferralMetrics {
	out := ReferralMetrics{Code: code, Range: r}

	agg := lookup(ix, code)
	if agg == nil {
		return out
	}

	out.Signups = sumCounts(agg.SignupsByDate, r)
	out.KYCUsers = sumCounts(agg.KYCByDate, r)
	out.FirstTxUsers = sumCounts(agg.FirstTxByDate, r)

	for day, stat := range agg.Buckets.Daily {
		if !r.Contains(day) {
			continue
		}
		out.FeeUSD += stat.FeeUSD
		out.VolumeUSD += stat.VolumeUSD
		out.RevenueTxCount += stat.RevenueTxCount
	}

	var ttfDays []float64
	for _, ua := range agg.Users {
		if ua.RevenueTxCount == 0 {
			continue
		}
		firstDay := domain.DayFromMillis(ua.FirstRevenueTxAt)
		lastDay := domain.DayFromMillis(ua.LastRevenueTxAt)

		// activity window overlaps the range
		if firstDay > r.End || lastDay < r.Start {
			continue
		}
		out.UsersWithRevenueTx++
		if ua.RetainedWithin30d {
			out.RetainedUsers++
		}
		if r.Contains(firstDay) && ua.TimeToFirstTxMs >= 0 {
			ttfDays = append(ttfDays, float64(ua.TimeToFirstTxMs)/msPerDay)
		}
	}

	if out.Signups > 0 {
		out.ConversionRate = float64(out.UsersWithRevenueTx) / float64(out.Signups)
		out.KYCRate = float64(out.KYCUsers) / float64(out.Signups)
	}
	if out.UsersWithRevenueTx > 0 {
		out.FeePerUser = out.FeeUSD / float64(out.UsersWithRevenueTx)
		out.Retention30d = float64(out.RetainedUsers) / float64(out.UsersWithRevenueTx)
	}
	out.TimeToFirstTxMedianDays = median(ttfDays)

	return out
}

// median is exact: sort ascending, average the two middle values for
// even-length input.
func median(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	sort.Float64s(samples)
	if n%2 == 1 {
		return samples[n/2]
	}
	return (samples[n/2-1] + samples[n/2]) / 2
}
