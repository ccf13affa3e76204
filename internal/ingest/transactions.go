package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"refstats/internal/dedupe"
	"refstats/internal/domain"
	"refstats/internal/index"
)

// Revenue-bearing transaction categories. Other types are dropped silently;
// they are not errors, just out of scope for revenue attribution.
var revenueCategories = map[string]bool{
	"SWAP":           true,
	"CROSS_SWAP":     true,
	"TRANSFER":       true,
	"CROSS_TRANSFER": true,
	"BRIDGE":         true,
	"FIAT_ON_RAMP":   true,
	"ON_RAMP":        true,
	"FIAT_OFF_RAMP":  true,
	"OFF_RAMP":       true,
}

var swapCategories = map[string]bool{
	"SWAP":       true,
	"CROSS_SWAP": true,
}

// Wire shape of one NDJSON transaction line. Loosely validated on purpose:
// optional branches simply stay nil.
type txLine struct {
	Type            string   `json:"type"`
	SentBy          string   `json:"sentBy"`
	CreatedAt       string   `json:"createdAt"`
	TransactionHash string   `json:"transactionHash"`
	CollectedFee    *feeLeg  `json:"collectedFee"`
	ReceivedAmount  *sideLeg `json:"receivedAmount"`
	SentAmount      *sideLeg `json:"sentAmount"`
}

type feeLeg struct {
	AmountIn *usdAmount `json:"amountIn"`
}

type sideLeg struct {
	AmountIn *usdAmount `json:"amountIn"`
	Token    *tokenRef  `json:"token"`
}

type usdAmount struct {
	USD float64 `json:"usd"`
}

type tokenRef struct {
	Symbol string `json:"symbol"`
}

// TxOptions carry the collaborators of the transaction stream.
type TxOptions struct {
	// Dedupe skips duplicate transaction hashes when set.
	Dedupe dedupe.Deduper
	// Owners is the set of customer ids that created referral codes; their
	// transactions additionally feed the per-owner usage table.
	Owners map[string]bool
	// Progress is invoked from the decode loop, must not block.
	Progress ProgressFn
	// Archive receives every qualifying transaction (long-term raw storage);
	// nil disables archiving.
	Archive func(tx *domain.RevenueTransaction)
}

// Transactions streams the NDJSON transaction file into the index in file
// order. Records are applied strictly sequentially: first-transaction
// detection and the 30-day retention flag depend on arrival order.
func Transactions(r io.Reader, ix *index.Index, errs *ErrorLog, opts TxOptions) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	applied := 0
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var rec txLine
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			errs.Addf(line, "unparseable json: %v", err)
			continue
		}
		ix.NoteTxLine()

		if !revenueCategories[rec.Type] {
			continue
		}

		ts, ok := parseTimestamp(strings.TrimSpace(rec.CreatedAt))
		if !ok {
			errs.Addf(line, "transaction with invalid createdAt %q", rec.CreatedAt)
			continue
		}

		tx := buildTx(&rec, ts.UnixMilli())

		if opts.Dedupe != nil && tx.Hash != "" {
			if seen, err := opts.Dedupe.Seen(tx.Hash); err == nil && seen {
				continue
			}
		}

		ix.AddRevenueTransaction(tx)

		if len(opts.Owners) > 0 {
			if cust, ok := ix.ByWallet[tx.Wallet]; ok && opts.Owners[cust.ID] {
				ix.AddOwnerUsageDaily(cust.ID, tx.Date, tx.FeeUSD, tx.VolumeUSD)
			}
		}
		if opts.Archive != nil {
			opts.Archive(tx)
		}

		applied++
		report(opts.Progress, applied)
	}
	if err := sc.Err(); err != nil {
		return applied, err
	}
	reportFinal(opts.Progress, applied)

	return applied, nil
}

func buildTx(rec *txLine, createdAt int64) *domain.RevenueTransaction {
	tx := &domain.RevenueTransaction{
		Wallet:    domain.NormalizeWallet(rec.SentBy),
		CreatedAt: createdAt,
		Date:      domain.DayFromMillis(createdAt),
		Category:  rec.Type,
		Hash:      strings.TrimSpace(rec.TransactionHash),
	}

	if rec.CollectedFee != nil && rec.CollectedFee.AmountIn != nil {
		tx.FeeUSD = rec.CollectedFee.AmountIn.USD
	}

	// volume: received side wins, sent side is the fallback
	switch {
	case rec.ReceivedAmount != nil && rec.ReceivedAmount.AmountIn != nil:
		tx.VolumeUSD = rec.ReceivedAmount.AmountIn.USD
	case rec.SentAmount != nil && rec.SentAmount.AmountIn != nil:
		tx.VolumeUSD = rec.SentAmount.AmountIn.USD
	}

	if rec.SentAmount != nil && rec.SentAmount.Token != nil && rec.SentAmount.Token.Symbol != "" {
		vol := 0.0
		if rec.SentAmount.AmountIn != nil {
			vol = rec.SentAmount.AmountIn.USD
		}
		tx.Tokens = append(tx.Tokens, domain.TokenAmount{Symbol: rec.SentAmount.Token.Symbol, VolumeUSD: vol})
	}
	if rec.ReceivedAmount != nil && rec.ReceivedAmount.Token != nil && rec.ReceivedAmount.Token.Symbol != "" {
		vol := 0.0
		if rec.ReceivedAmount.AmountIn != nil {
			vol = rec.ReceivedAmount.AmountIn.USD
		}
		tx.Tokens = append(tx.Tokens, domain.TokenAmount{Symbol: rec.ReceivedAmount.Token.Symbol, VolumeUSD: vol})
	}

	if swapCategories[rec.Type] &&
		rec.SentAmount != nil && rec.SentAmount.Token != nil && rec.SentAmount.Token.Symbol != "" &&
		rec.ReceivedAmount != nil && rec.ReceivedAmount.Token != nil && rec.ReceivedAmount.Token.Symbol != "" {
		tx.Swap = &domain.SwapFlow{
			FromSymbol: rec.SentAmount.Token.Symbol,
			ToSymbol:   rec.ReceivedAmount.Token.Symbol,
			VolumeUSD:  tx.VolumeUSD,
		}
	}

	return tx
}
