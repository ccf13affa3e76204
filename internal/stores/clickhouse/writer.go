package clickhouse

import (
	"context"
	"errors"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/config"
	"refstats/internal/domain"
)

// RevenueTxRow is the long-term archive shape of one qualifying transaction.
// The in-memory index keeps only a bounded sample; this sink keeps them all.
type RevenueTxRow struct {
	CreatedAt  time.Time
	Wallet     string
	Category   string
	FeeUSD     float64
	VolumeUSD  float64
	FromSymbol string
	ToSymbol   string
	TxHash     string
}

// Writer batches archive rows into ClickHouse on a size/interval trigger
// with retry and exponential backoff. Insert failures are logged, never
// propagated into ingestion.
type Writer struct {
	log logger.Logger

	conn ch.Conn
	cfg  config.ClickHouseWriterConfig

	inCh      chan RevenueTxRow
	closedCh  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewWriter(log logger.Logger, conn *Conn, cfg config.ClickHouseWriterConfig) *Writer {
	if cfg.BatchMaxRows <= 0 {
		cfg.BatchMaxRows = 1000
	}
	if cfg.BatchMaxInterval <= 0 {
		cfg.BatchMaxInterval = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	w := &Writer{
		log:      log,
		conn:     conn.Native,
		cfg:      cfg,
		inCh:     make(chan RevenueTxRow, 8192),
		closedCh: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

// RowFromTx converts an ingest-time transaction into its archive shape.
func RowFromTx(tx *domain.RevenueTransaction) RevenueTxRow {
	row := RevenueTxRow{
		CreatedAt: time.UnixMilli(tx.CreatedAt).UTC(),
		Wallet:    tx.Wallet,
		Category:  tx.Category,
		FeeUSD:    tx.FeeUSD,
		VolumeUSD: tx.VolumeUSD,
		TxHash:    tx.Hash,
	}
	if tx.Swap != nil {
		row.FromSymbol = tx.Swap.FromSymbol
		row.ToSymbol = tx.Swap.ToSymbol
	}
	return row
}

func (w *Writer) Enqueue(row RevenueTxRow) error {
	select {
	case <-w.closedCh:
		return errors.New("clickhouse writer closed")
	default:
	}

	select {
	case w.inCh <- row:
		return nil
	case <-w.closedCh:
		return errors.New("clickhouse writer closed")
	}
}

func (w *Writer) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		close(w.closedCh)
		close(w.inCh)
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	batch := make([]RevenueTxRow, 0, w.cfg.BatchMaxRows)
	ticker := time.NewTicker(w.cfg.BatchMaxInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.insertBatch(context.Background(), batch); err != nil {
			w.log.Errorf("Failed insert [%d] archive rows to clickhouse, error=%v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case row, ok := <-w.inCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= w.cfg.BatchMaxRows {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *Writer) insertBatch(ctx context.Context, rows []RevenueTxRow) error {
	backoff := w.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		lastErr = w.trySend(ctx, rows)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (w *Writer) trySend(ctx context.Context, rows []RevenueTxRow) error {
	batch, err := w.conn.PrepareBatch(ctx, `
		INSERT INTO revenue_transactions (
			created_at,
			wallet,
			category,
			fee_usd,
			volume_usd,
			from_symbol,
			to_symbol,
			tx_hash
		)
	`)
	if err != nil {
		return err
	}

	for i := range rows {
		r := &rows[i]
		if err = batch.Append(
			r.CreatedAt,
			r.Wallet,
			r.Category,
			r.FeeUSD,
			r.VolumeUSD,
			r.FromSymbol,
			r.ToSymbol,
			r.TxHash,
		); err != nil {
			_ = batch.Abort()
			return err
		}
	}

	return batch.Send()
}
