package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"refstats/internal/domain"
	"refstats/internal/index"
)

// Column names of the customer registry export.
const (
	colID       = "ID"
	colEmail    = "Email"
	colEOA      = "EOA"
	colWallet   = "Smart Wallet"
	colSignupAt = "Cadastrado em"
	colReferral = "Referral"
	colNotusID  = "Notus Individual ID"
)

var customerRequired = []string{colID, colWallet, colReferral, colSignupAt}

// signup timestamps arrive in a handful of export formats
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Customers streams the customer registry CSV into the index, one row at a
// time, in file order. A missing required header aborts with a SchemaError
// before any row is applied; bad rows land in the error log and ingestion
// continues.
func Customers(r io.Reader, ix *index.Index, errs *ErrorLog, progress ProgressFn) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read customer header: %w", err)
	}
	cols, missing := indexHeader(header, customerRequired)
	if len(missing) > 0 {
		return 0, &SchemaError{Missing: missing}
	}

	applied := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs.Addf(line-1, "malformed csv row: %v", err)
			continue
		}

		id := strings.TrimSpace(field(row, cols, colID))
		if id == "" {
			errs.Addf(line-1, "customer row without ID")
			continue
		}
		wallet := domain.NormalizeWallet(field(row, cols, colWallet))
		if wallet == "" {
			errs.Addf(line-1, "customer %s without smart wallet", id)
			continue
		}

		referral := strings.TrimSpace(field(row, cols, colReferral))
		if referral == "" {
			referral = domain.CodeUnassigned
		}

		c := &domain.Customer{
			ID:          id,
			Email:       strings.TrimSpace(field(row, cols, colEmail)),
			EOA:         domain.NormalizeWallet(field(row, cols, colEOA)),
			SmartWallet: wallet,
			Referral:    referral,
			NotusID:     strings.TrimSpace(field(row, cols, colNotusID)),
		}

		rawDate := strings.TrimSpace(field(row, cols, colSignupAt))
		if ts, ok := parseTimestamp(rawDate); ok {
			c.SignupAt = ts.UnixMilli()
			c.SignupDate = domain.DayFromMillis(c.SignupAt)
		} else {
			c.SignupDate = domain.InvalidDay
			errs.Addf(line-1, "customer %s has invalid signup date %q", id, rawDate)
		}

		ix.AddCustomer(c)
		applied++
		report(progress, applied)
	}
	reportFinal(progress, applied)

	return applied, nil
}

// indexHeader maps column name to position and reports required names that
// are absent.
func indexHeader(header, required []string) (map[string]int, []string) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	return cols, missing
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
