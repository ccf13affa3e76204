// Package export builds the outward-facing artifacts: the referral
// leaderboard CSV and the full snapshot JSON ("reuse analytics index later").
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"refstats/internal/index"
	"refstats/internal/propagation"
	"refstats/internal/query"
)

var leaderboardHeader = []string{
	"code",
	"signups",
	"kyc_users",
	"users_with_revenue_tx",
	"fee_usd",
	"volume_usd",
	"revenue_tx_count",
	"conversion_rate",
	"retention_30d",
	"descendants",
	"propagation_rate",
}

// Leaderboard writes one CSV row per referral code, ranked by fee revenue
// within the range.
func Leaderboard(w io.Writer, ix *index.Index, r query.Range) error {
	codes := make([]string, 0, len(ix.Aggregates))
	for code := range ix.Aggregates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	analyzer := propagation.New(ix)

	type row struct {
		m query.ReferralMetrics
		p propagation.Stats
	}
	rows := make([]row, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, row{
			m: query.Metrics(ix, code, r),
			p: analyzer.Stats(code),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].m.FeeUSD > rows[j].m.FeeUSD
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(leaderboardHeader); err != nil {
		return fmt.Errorf("failed to write leaderboard header: %w", err)
	}
	for _, rw := range rows {
		record := []string{
			rw.m.Code,
			fmt.Sprintf("%d", rw.m.Signups),
			fmt.Sprintf("%d", rw.m.KYCUsers),
			fmt.Sprintf("%d", rw.m.UsersWithRevenueTx),
			fmt.Sprintf("%.2f", rw.m.FeeUSD),
			fmt.Sprintf("%.2f", rw.m.VolumeUSD),
			fmt.Sprintf("%d", rw.m.RevenueTxCount),
			fmt.Sprintf("%.4f", rw.m.ConversionRate),
			fmt.Sprintf("%.4f", rw.m.Retention30d),
			fmt.Sprintf("%d", rw.p.Descendants),
			fmt.Sprintf("%.4f", rw.p.PropagationRate),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write leaderboard row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SnapshotJSON writes the full flattened index as JSON.
func SnapshotJSON(w io.Writer, ix *index.Index) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(index.Serialize(ix)); err != nil {
		return fmt.Errorf("failed to encode snapshot json: %w", err)
	}
	return nil
}
