package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refstats_records_ingested_total",
		Help: "Records applied to the index, by source.",
	}, []string{"source"})

	ParseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refstats_parse_errors_total",
		Help: "Malformed records skipped during ingestion, by source.",
	}, []string{"source"})

	UnattributedTxs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refstats_unattributed_transactions_total",
		Help: "Transactions from wallets absent in the customer registry.",
	})

	SnapshotCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refstats_snapshot_cache_hits_total",
		Help: "Sessions restored from a cached snapshot.",
	})

	SnapshotCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refstats_snapshot_cache_misses_total",
		Help: "Sessions built fresh from the source files.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
