//go:build ignore

// Run: go run ./build-tools/datagen.go -out data -customers 5000 -codes 80 -txs 50000 -tokens USDC,ETH,WBTC,DAI

package main

import (
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var txTypes = []string{"SWAP", "SWAP", "SWAP", "CROSS_SWAP", "TRANSFER", "BRIDGE", "ON_RAMP", "OFF_RAMP", "STAKE"}

func main() {
	var (
		out       = flag.String("out", "data", "output directory")
		customers = flag.Int("customers", 5000, "customer rows")
		codes     = flag.Int("codes", 80, "referral codes")
		txs       = flag.Int("txs", 50000, "transaction lines")
		tokens    = flag.String("tokens", "USDC,ETH,WBTC,DAI", "comma-separated token symbols")
		badRate   = flag.Float64("bad", 0.01, "fraction of malformed rows")
		seed      = flag.Int64("seed", 0, "rng seed, 0 = time-based")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := mrand.New(mrand.NewSource(*seed))

	tokenSymbols := splitTrim(*tokens)
	if len(tokenSymbols) == 0 {
		fmt.Println("no tokens provided")
		os.Exit(1)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Printf("mkdir error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("datagen → out=%s customers=%d codes=%d txs=%d seed=%d\n", *out, *customers, *codes, *txs, *seed)

	codeNames := make([]string, *codes)
	for i := range codeNames {
		codeNames[i] = fmt.Sprintf("REF%04d", i+1)
	}

	wallets, owners := writeCustomers(rng, filepath.Join(*out, "customers.csv"), *customers, codeNames, *badRate)
	writeCodes(rng, filepath.Join(*out, "referral_codes.csv"), codeNames, owners)
	writeTransactions(rng, filepath.Join(*out, "transactions.ndjson"), *txs, wallets, tokenSymbols, *badRate)

	fmt.Println("done")
}

func writeCustomers(rng *mrand.Rand, path string, n int, codes []string, badRate float64) (wallets, ids []string) {
	f := mustCreate(path)
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"ID", "Email", "EOA", "Smart Wallet", "Cadastrado em", "Referral", "Notus Individual ID"})

	base := time.Now().UTC().AddDate(0, -6, 0)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("cust-%06d", i+1)
		wallet := "0x" + randHex(40)

		referral := ""
		if rng.Float64() < 0.7 {
			referral = codes[rng.Intn(len(codes))]
		}
		notus := ""
		if rng.Float64() < 0.4 {
			notus = "ind_" + randHex(12)
		}
		signup := base.Add(time.Duration(rng.Int63n(int64(180 * 24 * time.Hour))))

		date := signup.Format("2006-01-02 15:04:05")
		if rng.Float64() < badRate {
			date = "??/??/????"
		}

		_ = w.Write([]string{id, id + "@example.com", "0x" + randHex(40), wallet, date, referral, notus})
		wallets = append(wallets, wallet)
		ids = append(ids, id)
	}
	w.Flush()

	return wallets, ids
}

func writeCodes(rng *mrand.Rand, path string, codes, owners []string) {
	f := mustCreate(path)
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"Código", "Usos", "Máximo de usos", "Ativo", "Esgotado", "Válido a partir de", "Válido até", "Criado em", "Criado por"})

	for _, code := range codes {
		uses := fmt.Sprintf("%d", rng.Intn(500))
		maxUses := ""
		if rng.Float64() < 0.5 {
			maxUses = fmt.Sprintf("%d", 500+rng.Intn(500))
		}
		active := "Sim"
		if rng.Float64() < 0.2 {
			active = "Não"
		}
		createdBy := ""
		if len(owners) > 0 && rng.Float64() < 0.8 {
			createdBy = owners[rng.Intn(len(owners))]
		}

		_ = w.Write([]string{code, uses, maxUses, active, "Não", "2024-01-01", "2025-12-31", "2023-12-15", createdBy})
	}
	w.Flush()
}

func writeTransactions(rng *mrand.Rand, path string, n int, wallets, tokens []string, badRate float64) {
	f := mustCreate(path)
	defer f.Close()

	base := time.Now().UTC().AddDate(0, -4, 0)
	for i := 0; i < n; i++ {
		if rng.Float64() < badRate {
			fmt.Fprintln(f, `{"type":"SWAP","sentBy":`)
			continue
		}

		wallet := wallets[rng.Intn(len(wallets))]
		if rng.Float64() < 0.05 {
			// wallet the registry never saw
			wallet = "0x" + randHex(40)
		}

		from := tokens[rng.Intn(len(tokens))]
		to := tokens[rng.Intn(len(tokens))]
		for to == from {
			to = tokens[rng.Intn(len(tokens))]
		}
		volume := 10 + rng.Float64()*10000

		line := map[string]any{
			"type":            txTypes[rng.Intn(len(txTypes))],
			"sentBy":          wallet,
			"createdAt":       base.Add(time.Duration(rng.Int63n(int64(120 * 24 * time.Hour)))).Format(time.RFC3339),
			"transactionHash": "0x" + randHex(64),
			"collectedFee":    map[string]any{"amountIn": map[string]any{"usd": volume * 0.003}},
			"sentAmount": map[string]any{
				"amountIn": map[string]any{"usd": volume},
				"token":    map[string]any{"symbol": from},
			},
			"receivedAmount": map[string]any{
				"amountIn": map[string]any{"usd": volume * 0.99},
				"token":    map[string]any{"symbol": to},
			},
		}
		b, _ := json.Marshal(line)
		fmt.Fprintln(f, string(b))
	}
}

func mustCreate(path string) *os.File {
	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("create %s error: %v\n", path, err)
		os.Exit(1)
	}
	return f
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randHex(n int) string {
	b := make([]byte, n/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
