package domain

// Special referral code values.
const (
	// CodeAll is the synthetic aggregate mirroring totals across every code
	CodeAll = "all"
	// CodeUnassigned is assigned to customers with a blank referral field
	CodeUnassigned = "Unassigned"
	// InvalidDay marks an unparseable signup date; excluded from date bucketing
	InvalidDay = "Invalid"
)

// Customer is one row of the customer registry, normalized at ingest.
// Immutable after AddCustomer.
type Customer struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	EOA         string `json:"eoa,omitempty"`
	SmartWallet string `json:"smart_wallet"` // lower-cased, join key to transactions
	SignupAt    int64  `json:"signup_at"`    // epoch ms, 0 when the source date is invalid
	SignupDate  string `json:"signup_date"`  // "YYYY-MM-DD" or InvalidDay
	Referral    string `json:"referral"`     // CodeUnassigned when blank
	NotusID     string `json:"notus_id,omitempty"`
}

// KYC: presence of a Notus individual id means the customer is verified
func (c *Customer) IsKYC() bool {
	return c.NotusID != ""
}

// TokenAmount is a per-token volume contribution inside a transaction.
type TokenAmount struct {
	Symbol    string  `json:"symbol"`
	VolumeUSD float64 `json:"volume_usd"`
}

// SwapFlow describes the from/to legs of a swap transaction.
type SwapFlow struct {
	FromSymbol string  `json:"from_symbol"`
	ToSymbol   string  `json:"to_symbol"`
	VolumeUSD  float64 `json:"volume_usd"`
}

// RevenueTransaction is the ingest-time shape of one qualifying transaction.
// Only a bounded sample survives ingestion; everything else lives on as
// bucket contributions.
type RevenueTransaction struct {
	Wallet    string        `json:"wallet"`     // lower-cased
	CreatedAt int64         `json:"created_at"` // epoch ms
	Date      string        `json:"date"`       // derived day key
	FeeUSD    float64       `json:"fee_usd"`
	VolumeUSD float64       `json:"volume_usd"`
	Category  string        `json:"category"`
	Tokens    []TokenAmount `json:"tokens,omitempty"`
	Swap      *SwapFlow     `json:"swap,omitempty"`
	Hash      string        `json:"hash,omitempty"`
}

// ReferralCodeMeta describes the code object itself (usage limits, activity
// window, owner), independent of signup or revenue performance.
type ReferralCodeMeta struct {
	Code        string `json:"code"`
	Uses        int64  `json:"uses"`
	MaxUses     *int64 `json:"max_uses,omitempty"` // nil = unlimited
	IsActive    bool   `json:"is_active"`
	IsExhausted bool   `json:"is_exhausted"`
	ValidFrom   string `json:"valid_from,omitempty"`
	ValidUntil  string `json:"valid_until,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"` // customer id of the owner
}

// UserAggregate is the per-(referral, wallet) rollup. Exactly one per wallet
// per referral code, keyed off the customer's referral at signup time.
type UserAggregate struct {
	Wallet            string  `json:"wallet"`
	CustomerID        string  `json:"customer_id"`
	TxCount           int64   `json:"tx_count"`
	RevenueTxCount    int64   `json:"revenue_tx_count"`
	FeeUSD            float64 `json:"fee_usd"`
	VolumeUSD         float64 `json:"volume_usd"`
	FirstRevenueTxAt  int64   `json:"first_revenue_tx_at"` // 0 = none yet
	LastRevenueTxAt   int64   `json:"last_revenue_tx_at"`
	RetainedWithin30d bool    `json:"retained_within_30d"` // one-way flag
	TimeToFirstTxMs   int64   `json:"time_to_first_tx_ms"` // -1 when signup ts invalid
}

// DailyStat is the per-day revenue bucket.
type DailyStat struct {
	FeeUSD         float64 `json:"fee_usd"`
	VolumeUSD      float64 `json:"volume_usd"`
	RevenueTxCount int64   `json:"revenue_tx_count"`
}

// CategoryStat is a per-category value/count pair (fee or volume flavored).
type CategoryStat struct {
	Value float64 `json:"value"`
	Count int64   `json:"count"`
}

// TokenStat is the per-token-symbol volume bucket.
type TokenStat struct {
	VolumeUSD float64 `json:"volume_usd"`
	TxCount   int64   `json:"tx_count"`
}

// PairStat is the per-swap-pair ("FROM→TO") volume bucket.
type PairStat struct {
	VolumeUSD float64 `json:"volume_usd"`
	TxCount   int64   `json:"tx_count"`
}

// Totals are the index-wide running counters.
type Totals struct {
	Customers           int64 `json:"customers"`
	KYCUsers            int64 `json:"kyc_users"`
	TxLines             int64 `json:"tx_lines"`
	RevenueTxCount      int64 `json:"revenue_tx_count"`
	UnattributedTxCount int64 `json:"unattributed_tx_count"`
}

// Options control raw transaction retention inside the index.
type Options struct {
	KeepFullTx   bool `json:"keep_full_tx"`
	MaxStoredTxs int  `json:"max_stored_txs"`
}

// DefaultMaxStoredTxs bounds the per-code raw sample when KeepFullTx is off.
const DefaultMaxStoredTxs = 500
