package index

import (
	"refstats/internal/domain"
)

/*
	Index is the top-level analytics structure: one instance per ingestion
	session, mutated only through the AddX operations below, frozen once the
	first query runs. No internal locking: ingestion is single-writer and the
	query layer never mutates.
*/

type Index struct {
	ByID     map[string]*domain.Customer // customer id -> customer
	ByWallet map[string]*domain.Customer // smart wallet -> customer

	// Global wallet table. Shares UserAggregate pointers with the per-code
	// and global aggregates; last writer wins on wallet collisions, so a
	// wallet stays bound to the referral code seen at signup.
	UsersByWallet map[string]*domain.UserAggregate

	Aggregates map[string]*ReferralAggregate       // code -> aggregate, lazy
	Meta       map[string]*domain.ReferralCodeMeta // code -> meta

	OwnerUsageDaily    map[string]map[string]*domain.DailyStat // owner customer id -> day -> usage
	CustomerUsageDaily map[string]map[string]*domain.DailyStat // customer id -> day -> usage

	Global *ReferralAggregate // code domain.CodeAll

	Totals domain.Totals
	Opts   domain.Options
}

func New(opts domain.Options) *Index {
	if opts.MaxStoredTxs <= 0 {
		opts.MaxStoredTxs = domain.DefaultMaxStoredTxs
	}
	return &Index{
		ByID:               make(map[string]*domain.Customer),
		ByWallet:           make(map[string]*domain.Customer),
		UsersByWallet:      make(map[string]*domain.UserAggregate),
		Aggregates:         make(map[string]*ReferralAggregate),
		Meta:               make(map[string]*domain.ReferralCodeMeta),
		OwnerUsageDaily:    make(map[string]map[string]*domain.DailyStat),
		CustomerUsageDaily: make(map[string]map[string]*domain.DailyStat),
		Global:             NewReferralAggregate(domain.CodeAll),
		Opts:               opts,
	}
}

// Aggregate resolves the aggregate for a code, creating it on first
// reference. The special code domain.CodeAll resolves to the global one.
func (ix *Index) Aggregate(code string) *ReferralAggregate {
	if code == domain.CodeAll {
		return ix.Global
	}
	agg, ok := ix.Aggregates[code]
	if !ok {
		agg = NewReferralAggregate(code)
		ix.Aggregates[code] = agg
	}
	return agg
}

// AddCustomer registers a customer in both lookup tables and seeds a
// zero-valued UserAggregate shared by the code aggregate, the global
// aggregate and the wallet table. Must run before any transaction from that
// wallet, otherwise the transaction lands in the unattributed count.
func (ix *Index) AddCustomer(c *domain.Customer) {
	ix.ByID[c.ID] = c
	ix.ByWallet[c.SmartWallet] = c

	agg := ix.Aggregate(c.Referral)

	ua, ok := agg.Users[c.SmartWallet]
	if !ok {
		ua = &domain.UserAggregate{
			Wallet:          c.SmartWallet,
			CustomerID:      c.ID,
			TimeToFirstTxMs: -1,
		}
		agg.Users[c.SmartWallet] = ua
	}
	ix.Global.Users[c.SmartWallet] = ua
	ix.UsersByWallet[c.SmartWallet] = ua

	ix.Totals.Customers++
	if c.IsKYC() {
		ix.Totals.KYCUsers++
	}

	if c.SignupDate != "" && c.SignupDate != domain.InvalidDay {
		agg.SignupsByDate[c.SignupDate]++
		ix.Global.SignupsByDate[c.SignupDate]++
		if c.IsKYC() {
			agg.KYCByDate[c.SignupDate]++
			ix.Global.KYCByDate[c.SignupDate]++
		}
	}
}

// AddReferralCodeMeta upserts code metadata. No aggregate interaction.
func (ix *Index) AddReferralCodeMeta(meta *domain.ReferralCodeMeta) {
	if meta.Code == "" {
		return
	}
	ix.Meta[meta.Code] = meta
}

// NoteTxLine counts one parsed transaction line regardless of whether it
// qualifies as revenue.
func (ix *Index) NoteTxLine() {
	ix.Totals.TxLines++
}

const retentionWindowMs = 30 * 24 * 60 * 60 * 1000

// AddRevenueTransaction is the ingestion hot path. Transactions from wallets
// absent in the customer registry are counted and dropped so they never
// inflate a referral's numbers.
func (ix *Index) AddRevenueTransaction(tx *domain.RevenueTransaction) {
	ix.Totals.RevenueTxCount++

	cust, ok := ix.ByWallet[tx.Wallet]
	if !ok {
		ix.Totals.UnattributedTxCount++
		return
	}

	agg := ix.Aggregate(cust.Referral)

	ua, ok := ix.UsersByWallet[tx.Wallet]
	if !ok {
		// registry row without a seeded rollup should not happen; recover
		ua = &domain.UserAggregate{Wallet: tx.Wallet, CustomerID: cust.ID, TimeToFirstTxMs: -1}
		agg.Users[tx.Wallet] = ua
		ix.Global.Users[tx.Wallet] = ua
		ix.UsersByWallet[tx.Wallet] = ua
	}

	ua.TxCount++
	ua.RevenueTxCount++
	ua.FeeUSD += tx.FeeUSD
	ua.VolumeUSD += tx.VolumeUSD
	ua.LastRevenueTxAt = tx.CreatedAt

	if ua.FirstRevenueTxAt == 0 {
		ua.FirstRevenueTxAt = tx.CreatedAt
		if cust.SignupAt > 0 {
			ua.TimeToFirstTxMs = tx.CreatedAt - cust.SignupAt
		}
		agg.FirstTxByDate[tx.Date]++
		ix.Global.FirstTxByDate[tx.Date]++
	} else if !ua.RetainedWithin30d && tx.CreatedAt-ua.FirstRevenueTxAt <= retentionWindowMs {
		ua.RetainedWithin30d = true
	}

	agg.applyTx(tx, ix.Opts)
	ix.Global.applyTx(tx, ix.Opts)

	ix.bumpUsage(ix.CustomerUsageDaily, cust.ID, tx.Date, tx.FeeUSD, tx.VolumeUSD)
}

// AddOwnerUsageDaily increments the per-owner daily bucket, independent of
// the referral aggregate machinery. Measures revenue generated by wallets
// belonging to a code's creator, not the code's users.
func (ix *Index) AddOwnerUsageDaily(ownerID, day string, feeUSD, volumeUSD float64) {
	ix.bumpUsage(ix.OwnerUsageDaily, ownerID, day, feeUSD, volumeUSD)
}

func (ix *Index) bumpUsage(table map[string]map[string]*domain.DailyStat, id, day string, feeUSD, volumeUSD float64) {
	m, ok := table[id]
	if !ok {
		m = make(map[string]*domain.DailyStat)
		table[id] = m
	}
	d, ok := m[day]
	if !ok {
		d = &domain.DailyStat{}
		m[day] = d
	}
	d.FeeUSD += feeUSD
	d.VolumeUSD += volumeUSD
	d.RevenueTxCount++
}
