package index

import (
	"sort"

	"refstats/internal/domain"
)

// ReferralAggregate bundles every bucket family for one referral code plus
// the per-wallet rollups and a bounded sample of raw transactions. The code
// domain.CodeAll instance mirrors totals across all codes. Created lazily on
// first reference, never deleted.
type ReferralAggregate struct {
	Code string

	SignupsByDate map[string]int64 // day -> signups
	KYCByDate     map[string]int64
	FirstTxByDate map[string]int64 // day of a wallet's first revenue tx

	Buckets *Buckets

	Users map[string]*domain.UserAggregate // wallet -> rollup

	// Newest-first bounded raw sample, see trimSample
	TopRevenueTxs []domain.RevenueTransaction

	FeeUSDTotal    float64
	VolumeUSDTotal float64
	RevenueTxCount int64
}

func NewReferralAggregate(code string) *ReferralAggregate {
	return &ReferralAggregate{
		Code:          code,
		SignupsByDate: make(map[string]int64),
		KYCByDate:     make(map[string]int64),
		FirstTxByDate: make(map[string]int64),
		Buckets:       NewBuckets(),
		Users:         make(map[string]*domain.UserAggregate),
	}
}

// applyTx folds one attributed transaction into the bucket families and the
// running totals. UserAggregate bookkeeping happens in the index, which owns
// the shared wallet table.
func (r *ReferralAggregate) applyTx(tx *domain.RevenueTransaction, opts domain.Options) {
	r.Buckets.AddDaily(tx.Date, tx.FeeUSD, tx.VolumeUSD)
	r.Buckets.AddCategory(tx.Date, tx.Category, tx.FeeUSD, tx.VolumeUSD)

	for _, t := range tx.Tokens {
		r.Buckets.AddToken(tx.Date, t.Symbol, t.VolumeUSD)
	}
	if tx.Swap != nil {
		r.Buckets.AddSwapPair(tx.Date, tx.Swap.FromSymbol, tx.Swap.ToSymbol, tx.Swap.VolumeUSD)
	}

	r.FeeUSDTotal += tx.FeeUSD
	r.VolumeUSDTotal += tx.VolumeUSD
	r.RevenueTxCount++

	r.TopRevenueTxs = append(r.TopRevenueTxs, *tx)
	r.trimSample(opts)
}

// trimSample enforces the retention policy: with KeepFullTx off, whenever the
// sample exceeds the cap it is stable-sorted newest-first and truncated, so
// the freshest N observations always survive. Ties in CreatedAt must not
// reorder arbitrarily, hence the stable sort.
func (r *ReferralAggregate) trimSample(opts domain.Options) {
	if opts.KeepFullTx {
		return
	}

	cap := opts.MaxStoredTxs
	if cap <= 0 {
		cap = domain.DefaultMaxStoredTxs
	}
	if len(r.TopRevenueTxs) <= cap {
		return
	}

	sort.SliceStable(r.TopRevenueTxs, func(i, j int) bool {
		return r.TopRevenueTxs[i].CreatedAt > r.TopRevenueTxs[j].CreatedAt
	})
	r.TopRevenueTxs = r.TopRevenueTxs[:cap]
}
