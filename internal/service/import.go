package service

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/config"
	"refstats/internal/dedupe"
	"refstats/internal/domain"
	"refstats/internal/index"
	"refstats/internal/ingest"
	"refstats/internal/metrics"
	"refstats/internal/pubsub"
	"refstats/internal/stores/clickhouse"
	rds "refstats/internal/stores/redis"
)

/*
	ImportService runs one ingestion session: fingerprint the sources,
	consult the snapshot cache, otherwise stream all three files through the
	ingestion API in file order, then cache the result. The finished index is
	frozen; the query layer only ever sees it through Current().
*/

type ImportService struct {
	log         logger.Logger
	cache       *rds.SnapshotCache // nil = caching disabled
	broadcaster pubsub.Broadcaster // nil = no progress fan-out
	archive     *clickhouse.Writer // nil = no raw archive
	deduper     dedupe.Deduper     // nil = no hash dedupe
	opts        domain.Options

	mu     sync.RWMutex
	ix     *index.Index
	errs   []string
	sessID string
}

// Result describes one finished session.
type Result struct {
	Session   string   `json:"session"`
	FromCache bool     `json:"from_cache"`
	Errors    []string `json:"errors"`
}

func NewImportService(
	log logger.Logger,
	cache *rds.SnapshotCache,
	broadcaster pubsub.Broadcaster,
	archive *clickhouse.Writer,
	deduper dedupe.Deduper,
	opts domain.Options,
) *ImportService {
	return &ImportService{
		log:         log,
		cache:       cache,
		broadcaster: broadcaster,
		archive:     archive,
		deduper:     deduper,
		opts:        opts,
	}
}

// Current returns the frozen index of the last finished session, or nil
// before the first Run completes.
func (s *ImportService) Current() *index.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix
}

// Errors returns the bounded ingestion error list of the last session.
func (s *ImportService) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.errs...)
}

// Run executes one session. Record application is strictly sequential on
// this goroutine: first-transaction detection and 30-day retention are
// order-dependent, so the index has a single writer by construction.
func (s *ImportService) Run(ctx context.Context, src config.SourcesConfig) (*Result, error) {
	session := uuid.NewString()
	errs := ingest.NewErrorLog()

	key, keyErr := rds.FingerprintKey(src.Customers, src.ReferralCodes, src.Transactions)
	if keyErr != nil {
		return nil, keyErr
	}

	if ix, ok := s.tryCache(ctx, key, errs); ok {
		s.publish(ctx, session, "restore", 0, true)
		s.freeze(session, ix, errs)
		return &Result{Session: session, FromCache: true, Errors: errs.Entries()}, nil
	}

	ix, err := s.build(ctx, session, src, errs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if blob, err := index.Encode(ix); err != nil {
			s.log.Errorf("Failed to encode snapshot for caching: %v", err)
		} else if err := s.cache.Put(ctx, key, blob); err != nil {
			errs.Warnf("cache unavailable, result not cached: %v", err)
			s.log.Errorf("Snapshot cache put failed: %v", err)
		}
	}

	s.freeze(session, ix, errs)
	return &Result{Session: session, Errors: errs.Entries()}, nil
}

func (s *ImportService) tryCache(ctx context.Context, key string, errs *ingest.ErrorLog) (*index.Index, bool) {
	if s.cache == nil {
		return nil, false
	}

	blob, found, err := s.cache.Get(ctx, key)
	if err != nil {
		// degrade to a fresh build, never fail the session
		errs.Warnf("cache unavailable, building fresh: %v", err)
		s.log.Errorf("Snapshot cache get failed: %v", err)
		metrics.SnapshotCacheMisses.Inc()
		return nil, false
	}
	if !found {
		metrics.SnapshotCacheMisses.Inc()
		return nil, false
	}

	ix, err := index.Decode(blob)
	if err != nil {
		errs.Warnf("cached snapshot unreadable, building fresh: %v", err)
		s.log.Errorf("Cached snapshot decode failed: %v", err)
		metrics.SnapshotCacheMisses.Inc()
		return nil, false
	}

	metrics.SnapshotCacheHits.Inc()
	s.log.Infof("Restored index from snapshot cache: %d customers, %d codes", ix.Totals.Customers, len(ix.Aggregates))
	return ix, true
}

func (s *ImportService) build(ctx context.Context, session string, src config.SourcesConfig, errs *ingest.ErrorLog) (*index.Index, error) {
	ix := index.New(s.opts)

	n, err := s.ingestFile(src.Customers, "customers", errs, func(f *os.File) (int, error) {
		return ingest.Customers(f, ix, errs, s.progressFn(ctx, session, "customers"))
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Ingested %d customers", n)

	n, err = s.ingestFile(src.ReferralCodes, "referral_codes", errs, func(f *os.File) (int, error) {
		return ingest.ReferralCodes(f, ix, errs, s.progressFn(ctx, session, "referral_codes"))
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Ingested %d referral codes", n)

	owners := make(map[string]bool, len(ix.Meta))
	for _, meta := range ix.Meta {
		if meta.CreatedBy != "" {
			owners[meta.CreatedBy] = true
		}
	}

	txOpts := ingest.TxOptions{
		Dedupe:   s.deduper,
		Owners:   owners,
		Progress: s.progressFn(ctx, session, "transactions"),
	}
	if s.archive != nil {
		txOpts.Archive = func(tx *domain.RevenueTransaction) {
			if err := s.archive.Enqueue(clickhouse.RowFromTx(tx)); err != nil {
				s.log.Errorf("Failed to enqueue archive row: %v", err)
			}
		}
	}

	n, err = s.ingestFile(src.Transactions, "transactions", errs, func(f *os.File) (int, error) {
		return ingest.Transactions(f, ix, errs, txOpts)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Ingested %d revenue transactions (%d unattributed)", n, ix.Totals.UnattributedTxCount)
	metrics.UnattributedTxs.Add(float64(ix.Totals.UnattributedTxCount))

	return ix, nil
}

func (s *ImportService) ingestFile(path, source string, errs *ingest.ErrorLog, run func(*os.File) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s source: %w", source, err)
	}
	defer f.Close()

	before := errs.Len()
	n, err := run(f)
	if err != nil {
		return n, err
	}

	metrics.RecordsIngested.WithLabelValues(source).Add(float64(n))
	metrics.ParseErrors.WithLabelValues(source).Add(float64(errs.Len() - before))
	return n, nil
}

func (s *ImportService) progressFn(ctx context.Context, session, source string) ingest.ProgressFn {
	if s.broadcaster == nil {
		return nil
	}
	return func(records int) {
		s.publish(ctx, session, source, records, false)
	}
}

func (s *ImportService) publish(ctx context.Context, session, source string, records int, done bool) {
	if s.broadcaster == nil {
		return
	}
	ev := pubsub.ProgressEvent{Session: session, Source: source, Records: records, Done: done}
	if err := s.broadcaster.Publish(ctx, "ingest."+session, ev); err != nil {
		// progress fan-out is best-effort
		s.log.Debugf("Failed to publish progress for %s: %v", source, err)
	}
}

func (s *ImportService) freeze(session string, ix *index.Index, errs *ingest.ErrorLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessID = session
	s.ix = ix
	s.errs = errs.Entries()
}
