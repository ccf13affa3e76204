package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refstats/internal/domain"
	"refstats/internal/index"
)

// ========== Daily Series ==========

func TestDailySeries_ZeroFillsEmptyDays(t *testing.T) {
	ix := index.New(domain.Options{})
	addCustomer(ix, "u1", "0xaaa", "WELCOME", "2024-03-01", true)
	addTx(ix, "0xaaa", "2024-03-03", 0, 10, 100, "SWAP")

	rows := DailySeries(ix, "WELCOME", Range{Start: "2024-03-01", End: "2024-03-04"})
	require.Len(t, rows, 4)

	assert.Equal(t, "2024-03-01", rows[0].Day)
	assert.Equal(t, int64(1), rows[0].Signups)
	assert.Equal(t, int64(1), rows[0].KYCUsers)
	assert.Zero(t, rows[0].FeeUSD)

	assert.Equal(t, "2024-03-02", rows[1].Day)
	assert.Zero(t, rows[1].FeeUSD)
	assert.Zero(t, rows[1].Signups)

	assert.Equal(t, "2024-03-03", rows[2].Day)
	assert.Equal(t, 10.0, rows[2].FeeUSD)
	assert.Equal(t, 100.0, rows[2].VolumeUSD)
	assert.Equal(t, int64(1), rows[2].RevenueTxCount)
	assert.Equal(t, int64(1), rows[2].FirstTxUsers)

	assert.Equal(t, "2024-03-04", rows[3].Day)
	assert.Zero(t, rows[3].RevenueTxCount)
}

func TestDailySeries_UnknownCodeStillZeroFills(t *testing.T) {
	ix := index.New(domain.Options{})

	rows := DailySeries(ix, "NOPE", Range{Start: "2024-03-01", End: "2024-03-02"})
	require.Len(t, rows, 2)
	assert.Zero(t, rows[0].FeeUSD)
	assert.Zero(t, rows[1].Signups)
}

func TestDailySeries_MalformedRangeIsEmpty(t *testing.T) {
	ix := index.New(domain.Options{})

	assert.Empty(t, DailySeries(ix, "WELCOME", Range{Start: "bogus", End: "2024-03-02"}))
	assert.Empty(t, DailySeries(ix, "WELCOME", Range{Start: "2024-03-05", End: "2024-03-02"}))
}

// ========== Category Breakdowns ==========

func TestCategoryBreakdown_GroupsAndDropsUnknown(t *testing.T) {
	ix := index.New(domain.Options{})
	addCustomer(ix, "u1", "0xaaa", "WELCOME", "2024-03-01", false)
	addTx(ix, "0xaaa", "2024-03-02", 0, 10, 100, "SWAP")
	addTx(ix, "0xaaa", "2024-03-02", 1, 5, 50, "CROSS_SWAP")
	addTx(ix, "0xaaa", "2024-03-03", 0, 2, 20, "BRIDGE")
	addTx(ix, "0xaaa", "2024-03-03", 1, 9, 90, "MYSTERY")

	rows := CategoryBreakdown(ix, "WELCOME", march())
	require.Len(t, rows, 2, "unknown raw categories stay out of the grouped view")

	assert.Equal(t, "Swap", rows[0].Group)
	assert.Equal(t, 15.0, rows[0].FeeUSD)
	assert.Equal(t, 150.0, rows[0].VolumeUSD)
	assert.Equal(t, int64(2), rows[0].TxCount)

	assert.Equal(t, "Bridge", rows[1].Group)
	assert.Equal(t, 2.0, rows[1].FeeUSD)
}

func TestRawCategoryTotals_KeepsUnknown(t *testing.T) {
	ix := index.New(domain.Options{})
	addCustomer(ix, "u1", "0xaaa", "WELCOME", "2024-03-01", false)
	addTx(ix, "0xaaa", "2024-03-02", 0, 10, 100, "SWAP")
	addTx(ix, "0xaaa", "2024-03-03", 1, 9, 90, "MYSTERY")

	rows := RawCategoryTotals(ix, "WELCOME", march())
	require.Len(t, rows, 2)

	byName := make(map[string]GroupRow, len(rows))
	for _, row := range rows {
		byName[row.Group] = row
	}
	assert.Equal(t, 9.0, byName["MYSTERY"].FeeUSD)
	assert.Equal(t, 10.0, byName["SWAP"].FeeUSD)
}

func TestCategoryBreakdown_RangeClips(t *testing.T) {
	ix := index.New(domain.Options{})
	addCustomer(ix, "u1", "0xaaa", "WELCOME", "2024-03-01", false)
	addTx(ix, "0xaaa", "2024-02-20", 0, 10, 100, "SWAP")
	addTx(ix, "0xaaa", "2024-03-02", 0, 5, 50, "SWAP")

	rows := CategoryBreakdown(ix, "WELCOME", march())
	require.Len(t, rows, 1)
	assert.Equal(t, 5.0, rows[0].FeeUSD)
}

// ========== Taxonomy ==========

func TestGroupCategory(t *testing.T) {
	cases := map[string]string{
		"SWAP":           "Swap",
		"CROSS_SWAP":     "Swap",
		"TRANSFER":       "Transfer",
		"CROSS_TRANSFER": "Transfer",
		"BRIDGE":         "Bridge",
		"ON_RAMP":        "On-ramp",
		"FIAT_ON_RAMP":   "On-ramp",
		"OFF_RAMP":       "Off-ramp",
		"FIAT_OFF_RAMP":  "Off-ramp",
	}
	for raw, want := range cases {
		group, ok := GroupCategory(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, group)
	}

	_, ok := GroupCategory("STAKE")
	assert.False(t, ok)
}

// ========== Token Breakdown ==========

func TestTokenBreakdown_SortedByVolume(t *testing.T) {
	ix := index.New(domain.Options{})
	addCustomer(ix, "u1", "0xaaa", "WELCOME", "2024-03-01", false)

	ix.AddRevenueTransaction(&domain.RevenueTransaction{
		Wallet: "0xaaa", CreatedAt: millis("2024-03-02", 0), Date: "2024-03-02",
		FeeUSD: 1, VolumeUSD: 100, Category: "SWAP",
		Tokens: []domain.TokenAmount{{Symbol: "ETH", VolumeUSD: 100}, {Symbol: "USDC", VolumeUSD: 100}},
	})
	ix.AddRevenueTransaction(&domain.RevenueTransaction{
		Wallet: "0xaaa", CreatedAt: millis("2024-03-03", 0), Date: "2024-03-03",
		FeeUSD: 1, VolumeUSD: 40, Category: "SWAP",
		Tokens: []domain.TokenAmount{{Symbol: "ETH", VolumeUSD: 40}},
	})

	rows := TokenBreakdown(ix, "WELCOME", march())
	require.Len(t, rows, 2)

	assert.Equal(t, "ETH", rows[0].Symbol)
	assert.Equal(t, 140.0, rows[0].VolumeUSD)
	assert.Equal(t, int64(2), rows[0].TxCount)
	assert.Equal(t, "USDC", rows[1].Symbol)
	assert.Equal(t, 100.0, rows[1].VolumeUSD)
}

func TestTokenBreakdown_TiesBreakBySymbol(t *testing.T) {
	ix := index.New(domain.Options{})
	addCustomer(ix, "u1", "0xaaa", "WELCOME", "2024-03-01", false)

	ix.AddRevenueTransaction(&domain.RevenueTransaction{
		Wallet: "0xaaa", CreatedAt: millis("2024-03-02", 0), Date: "2024-03-02",
		FeeUSD: 1, VolumeUSD: 50, Category: "SWAP",
		Tokens: []domain.TokenAmount{{Symbol: "WBTC", VolumeUSD: 50}, {Symbol: "DAI", VolumeUSD: 50}},
	})

	rows := TokenBreakdown(ix, "WELCOME", march())
	require.Len(t, rows, 2)
	assert.Equal(t, "DAI", rows[0].Symbol)
	assert.Equal(t, "WBTC", rows[1].Symbol)
}
