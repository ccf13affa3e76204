package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refstats/internal/domain"
)

// ========== Test Helpers ==========

func populatedIndex() *Index {
	ix := New(domain.Options{MaxStoredTxs: 3})

	c1 := testCustomer("u1", "0xaaa", "WELCOME", "2024-03-01")
	c1.NotusID = "notus-1"
	ix.AddCustomer(c1)
	ix.AddCustomer(testCustomer("u2", "0xbbb", "WELCOME", "2024-03-02"))
	ix.AddCustomer(testCustomer("u3", "0xccc", "PROMO", "2024-03-03"))

	maxUses := int64(100)
	ix.AddReferralCodeMeta(&domain.ReferralCodeMeta{Code: "WELCOME", Uses: 2, MaxUses: &maxUses, IsActive: true, CreatedBy: "u3"})
	ix.AddReferralCodeMeta(&domain.ReferralCodeMeta{Code: "PROMO", Uses: 1})

	for hour := 0; hour < 6; hour++ {
		tx := testTx("0xaaa", "2024-03-04", hour, 2, 20)
		tx.Tokens = []domain.TokenAmount{{Symbol: "ETH", VolumeUSD: 20}}
		tx.Swap = &domain.SwapFlow{FromSymbol: "ETH", ToSymbol: "USDC", VolumeUSD: 20}
		ix.AddRevenueTransaction(tx)
	}
	ix.AddRevenueTransaction(testTx("0xbbb", "2024-03-05", 9, 5, 50))
	ix.AddRevenueTransaction(testTx("0xccc", "2024-03-06", 9, 7, 70))
	ix.AddRevenueTransaction(testTx("0xdead", "2024-03-06", 10, 1, 1)) // unattributed
	ix.AddOwnerUsageDaily("u3", "2024-03-04", 2, 20)

	ix.NoteTxLine()
	ix.NoteTxLine()

	return ix
}

// ========== Round Trip ==========

func TestSnapshot_GobRoundTrip(t *testing.T) {
	ix := populatedIndex()

	blob, err := Encode(ix)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	got, err := Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, ix.Totals, got.Totals)
	assert.Equal(t, ix.Opts, got.Opts)

	require.Len(t, got.ByID, len(ix.ByID))
	for id, c := range ix.ByID {
		assert.Equal(t, *c, *got.ByID[id])
	}
	require.Len(t, got.Meta, len(ix.Meta))
	assert.Equal(t, *ix.Meta["WELCOME"], *got.Meta["WELCOME"])

	require.Len(t, got.Aggregates, len(ix.Aggregates))
	for code, agg := range ix.Aggregates {
		gotAgg := got.Aggregates[code]
		require.NotNil(t, gotAgg, "aggregate %s missing after decode", code)
		assert.Equal(t, agg.FeeUSDTotal, gotAgg.FeeUSDTotal)
		assert.Equal(t, agg.VolumeUSDTotal, gotAgg.VolumeUSDTotal)
		assert.Equal(t, agg.RevenueTxCount, gotAgg.RevenueTxCount)
		assert.Equal(t, agg.SignupsByDate, gotAgg.SignupsByDate)
		assert.Equal(t, agg.FirstTxByDate, gotAgg.FirstTxByDate)
		assert.Equal(t, agg.Buckets.DailyTotal, gotAgg.Buckets.DailyTotal)
		assert.Equal(t, len(agg.TopRevenueTxs), len(gotAgg.TopRevenueTxs))
		for w, ua := range agg.Users {
			require.NotNil(t, gotAgg.Users[w])
			assert.Equal(t, *ua, *gotAgg.Users[w])
		}
	}

	assert.Equal(t, ix.Global.FeeUSDTotal, got.Global.FeeUSDTotal)
	assert.Equal(t, ix.Global.RevenueTxCount, got.Global.RevenueTxCount)
	assert.Equal(t, ix.Global.SignupsByDate, got.Global.SignupsByDate)
}

func TestSnapshot_DecodeRelinksSharedPointers(t *testing.T) {
	ix := populatedIndex()

	blob, err := Encode(ix)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)

	require.Len(t, got.UsersByWallet, len(ix.UsersByWallet))
	for wallet := range ix.UsersByWallet {
		ua := got.UsersByWallet[wallet]
		require.NotNil(t, ua, "wallet %s missing after decode", wallet)
		assert.Same(t, ua, got.Global.Users[wallet], "global table must share the decoded pointer")

		cust := got.ByWallet[wallet]
		require.NotNil(t, cust)
		assert.Same(t, ua, got.Aggregates[cust.Referral].Users[wallet])
	}
}

func TestSnapshot_UsageTablesSurvive(t *testing.T) {
	ix := populatedIndex()

	blob, err := Encode(ix)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)

	require.NotNil(t, got.OwnerUsageDaily["u3"])
	assert.Equal(t, *ix.OwnerUsageDaily["u3"]["2024-03-04"], *got.OwnerUsageDaily["u3"]["2024-03-04"])

	require.NotNil(t, got.CustomerUsageDaily["u1"])
	assert.Equal(t, *ix.CustomerUsageDaily["u1"]["2024-03-04"], *got.CustomerUsageDaily["u1"]["2024-03-04"])
}

// ========== Determinism ==========

func TestSerialize_OrderIsStable(t *testing.T) {
	ix := populatedIndex()

	a := Serialize(ix)
	b := Serialize(ix)

	assert.Equal(t, a.Customers, b.Customers)
	assert.Equal(t, a.Meta, b.Meta)
	require.Equal(t, len(a.Aggregates), len(b.Aggregates))
	for i := range a.Aggregates {
		assert.Equal(t, a.Aggregates[i].Code, b.Aggregates[i].Code)
		assert.Equal(t, a.Aggregates[i].Buckets, b.Aggregates[i].Buckets)
		assert.Equal(t, a.Aggregates[i].Users, b.Aggregates[i].Users)
	}
	assert.Equal(t, a.OwnerUsage, b.OwnerUsage)
	assert.Equal(t, a.CustomerUsage, b.CustomerUsage)
}

func TestEncode_ByteIdenticalForSameState(t *testing.T) {
	ix := populatedIndex()

	a, err := Encode(ix)
	require.NoError(t, err)
	b, err := Encode(ix)
	require.NoError(t, err)

	// identical index state must yield identical bytes, so the cache
	// fingerprint can double as a content hash
	assert.Equal(t, a, b)
}

func TestSerialize_GlobalCarriesNoUserList(t *testing.T) {
	snap := Serialize(populatedIndex())
	assert.Empty(t, snap.Global.Users)
	for _, agg := range snap.Aggregates {
		assert.NotEmpty(t, agg.Users, "per-code aggregates must carry their users")
	}
}

// ========== Failure Modes ==========

func TestDecode_RejectsBadInput(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	_, err = Decode([]byte("not a gob snapshot"))
	assert.Error(t, err)
}

func TestDeserialize_RejectsVersionMismatch(t *testing.T) {
	snap := Serialize(populatedIndex())
	snap.Version = snapshotVersion + 1

	_, err := Deserialize(snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported snapshot version")
}
