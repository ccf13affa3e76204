package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"refstats/internal/domain"
	"refstats/internal/index"
)

// Column names of the referral code registry export (Portuguese source).
const (
	colCode      = "Código"
	colUses      = "Usos"
	colMaxUses   = "Máximo de usos"
	colActive    = "Ativo"
	colExhausted = "Esgotado"
	colValidFrom = "Válido a partir de"
	colValidTo   = "Válido até"
	colCreatedAt = "Criado em"
	colCreatedBy = "Criado por"
)

var codeRequired = []string{colCode}

// ReferralCodes streams the code registry CSV into the index. Rows with a
// blank code are ignored per the upsert contract; everything else is
// tolerant of missing optional columns.
func ReferralCodes(r io.Reader, ix *index.Index, errs *ErrorLog, progress ProgressFn) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read referral code header: %w", err)
	}
	cols, missing := indexHeader(header, codeRequired)
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

		code := strings.TrimSpace(field(row, cols, colCode))
		if code == "" {
			continue
		}

		meta := &domain.ReferralCodeMeta{
			Code:        code,
			Uses:        parseInt(field(row, cols, colUses)),
			IsActive:    parsePtBool(field(row, cols, colActive)),
			IsExhausted: parsePtBool(field(row, cols, colExhausted)),
			ValidFrom:   strings.TrimSpace(field(row, cols, colValidFrom)),
			ValidUntil:  strings.TrimSpace(field(row, cols, colValidTo)),
			CreatedAt:   strings.TrimSpace(field(row, cols, colCreatedAt)),
			CreatedBy:   strings.TrimSpace(field(row, cols, colCreatedBy)),
		}
		if raw := strings.TrimSpace(field(row, cols, colMaxUses)); raw != "" {
			n := parseInt(raw)
			meta.MaxUses = &n
		}

		ix.AddReferralCodeMeta(meta)
		applied++
		report(progress, applied)
	}
	reportFinal(progress, applied)

	return applied, nil
}

func parseInt(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parsePtBool accepts the small Portuguese yes/no vocabulary alongside the
// usual boolean spellings.
func parsePtBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sim", "s", "yes", "y", "true", "1", "ativo":
		return true
	default:
		return false
	}
}
