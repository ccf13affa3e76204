package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refstats/internal/domain"
	"refstats/internal/index"
	"refstats/internal/query"
)

// ========== Test Helpers ==========

func millis(day string) int64 {
	tm, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return tm.UnixMilli()
}

func buildIndex() *index.Index {
	ix := index.New(domain.Options{})

	ix.AddCustomer(&domain.Customer{
		ID: "u1", SmartWallet: "0xaaa", Referral: "GOLD",
		SignupAt: millis("2024-03-01"), SignupDate: "2024-03-01",
	})
	ix.AddCustomer(&domain.Customer{
		ID: "u2", SmartWallet: "0xbbb", Referral: "SILVER",
		SignupAt: millis("2024-03-01"), SignupDate: "2024-03-01",
	})

	ix.AddRevenueTransaction(&domain.RevenueTransaction{
		Wallet: "0xaaa", CreatedAt: millis("2024-03-02"), Date: "2024-03-02",
		FeeUSD: 100, VolumeUSD: 1000, Category: "SWAP",
	})
	ix.AddRevenueTransaction(&domain.RevenueTransaction{
		Wallet: "0xbbb", CreatedAt: millis("2024-03-02"), Date: "2024-03-02",
		FeeUSD: 5, VolumeUSD: 50, Category: "SWAP",
	})

	return ix
}

// ========== Leaderboard CSV ==========

func TestLeaderboard_RankedByFee(t *testing.T) {
	ix := buildIndex()

	var buf bytes.Buffer
	err := Leaderboard(&buf, ix, query.Range{Start: "2024-03-01", End: "2024-03-31"})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per code")

	assert.Equal(t, leaderboardHeader, records[0])
	assert.Equal(t, "GOLD", records[1][0], "highest fee first")
	assert.Equal(t, "100.00", records[1][4])
	assert.Equal(t, "SILVER", records[2][0])
	assert.Equal(t, "5.00", records[2][4])

	// one signup, one converted user
	assert.Equal(t, "1", records[1][1])
	assert.Equal(t, "1.0000", records[1][7])
}

func TestLeaderboard_EmptyIndexHeaderOnly(t *testing.T) {
	ix := index.New(domain.Options{})

	var buf bytes.Buffer
	err := Leaderboard(&buf, ix, query.Range{Start: "2024-03-01", End: "2024-03-31"})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, leaderboardHeader, records[0])
}

// ========== Snapshot JSON ==========

func TestSnapshotJSON_RoundTripsThroughDecoder(t *testing.T) {
	ix := buildIndex()

	var buf bytes.Buffer
	require.NoError(t, SnapshotJSON(&buf, ix))

	var snap index.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))

	assert.Equal(t, ix.Totals, snap.Totals)
	assert.Len(t, snap.Customers, 2)
	assert.Len(t, snap.Aggregates, 2)

	got, err := index.Deserialize(&snap)
	require.NoError(t, err)
	assert.Equal(t, ix.Global.FeeUSDTotal, got.Global.FeeUSDTotal)
}
