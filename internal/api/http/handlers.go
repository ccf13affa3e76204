package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/domain"
	"refstats/internal/export"
	"refstats/internal/index"
	"refstats/internal/propagation"
	"refstats/internal/query"
	"refstats/internal/service"
	"refstats/pkg/httputil"
)

const defaultSankeyLimit = 20

type API struct {
	log      logger.Logger
	importer *service.ImportService
}

func NewAPI(log logger.Logger, importer *service.ImportService) *API {
	if importer == nil {
		panic("import service cannot be nil")
	}
	return &API{log: log, importer: importer}
}

func (a *API) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readiness reports whether an ingestion session has finished.
func (a *API) Readiness(w http.ResponseWriter, r *http.Request) {
	if a.importer.Current() == nil {
		_ = httputil.Error(w, r, http.StatusServiceUnavailable, httputil.CodeIndexNotReady, "no ingestion session has completed", nil)
		return
	}
	if err := httputil.JSON(w, http.StatusOK, map[string]string{"index": "ready"}, nil); err != nil {
		a.log.Errorf("Readiness handler error: %s", err.Error())
	}
}

// frozen fetches the index or writes a 503. Queries only ever run against a
// finished session.
func (a *API) frozen(w http.ResponseWriter, r *http.Request) (*index.Index, bool) {
	ix := a.importer.Current()
	if ix == nil {
		_ = httputil.Error(w, r, http.StatusServiceUnavailable, httputil.CodeIndexNotReady, "no ingestion session has completed", nil)
		return nil, false
	}
	return ix, true
}

// rangeOf validates ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (a *API) rangeOf(w http.ResponseWriter, r *http.Request) (query.Range, bool) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	if _, err := domain.ParseDay(start); err != nil {
		_ = httputil.Error(w, r, http.StatusBadRequest, httputil.CodeBadRequest, "invalid or missing start date", map[string]any{"start": start})
		return query.Range{}, false
	}
	if _, err := domain.ParseDay(end); err != nil {
		_ = httputil.Error(w, r, http.StatusBadRequest, httputil.CodeBadRequest, "invalid or missing end date", map[string]any{"end": end})
		return query.Range{}, false
	}
	if start > end {
		_ = httputil.Error(w, r, http.StatusBadRequest, httputil.CodeBadRequest, "start is after end", nil)
		return query.Range{}, false
	}
	return query.Range{Start: start, End: end}, true
}

func (a *API) ReferralMetrics(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	rng, ok := a.rangeOf(w, r)
	if !ok {
		return
	}

	code := chi.URLParam(r, "code")
	if err := httputil.JSON(w, http.StatusOK, query.Metrics(ix, code, rng), nil); err != nil {
		a.log.Errorf("ReferralMetrics handler error: %s", err.Error())
	}
}

func (a *API) DailySeries(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	rng, ok := a.rangeOf(w, r)
	if !ok {
		return
	}

	code := chi.URLParam(r, "code")
	if err := httputil.JSON(w, http.StatusOK, query.DailySeries(ix, code, rng), nil); err != nil {
		a.log.Errorf("DailySeries handler error: %s", err.Error())
	}
}

func (a *API) CategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	rng, ok := a.rangeOf(w, r)
	if !ok {
		return
	}

	code := chi.URLParam(r, "code")
	var rows []query.GroupRow
	if r.URL.Query().Get("raw") == "true" {
		rows = query.RawCategoryTotals(ix, code, rng)
	} else {
		rows = query.CategoryBreakdown(ix, code, rng)
	}
	if err := httputil.JSON(w, http.StatusOK, rows, nil); err != nil {
		a.log.Errorf("CategoryBreakdown handler error: %s", err.Error())
	}
}

func (a *API) TokenBreakdown(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	rng, ok := a.rangeOf(w, r)
	if !ok {
		return
	}

	code := chi.URLParam(r, "code")
	if err := httputil.JSON(w, http.StatusOK, query.TokenBreakdown(ix, code, rng), nil); err != nil {
		a.log.Errorf("TokenBreakdown handler error: %s", err.Error())
	}
}

func (a *API) SwapFlowSankey(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	rng, ok := a.rangeOf(w, r)
	if !ok {
		return
	}

	limit := defaultSankeyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			_ = httputil.Error(w, r, http.StatusBadRequest, httputil.CodeBadRequest, "limit must be a positive integer", map[string]any{"limit": raw})
			return
		}
		limit = n
	}

	code := chi.URLParam(r, "code")
	if err := httputil.JSON(w, http.StatusOK, query.SwapFlowSankey(ix, code, rng, limit), nil); err != nil {
		a.log.Errorf("SwapFlowSankey handler error: %s", err.Error())
	}
}

func (a *API) PropagationRank(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	if err := httputil.JSON(w, http.StatusOK, propagation.New(ix).Rank(), nil); err != nil {
		a.log.Errorf("PropagationRank handler error: %s", err.Error())
	}
}

func (a *API) PropagationStats(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")
	if err := httputil.JSON(w, http.StatusOK, propagation.New(ix).Stats(code), nil); err != nil {
		a.log.Errorf("PropagationStats handler error: %s", err.Error())
	}
}

// IngestErrors surfaces the bounded record-level error list of the session.
func (a *API) IngestErrors(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.frozen(w, r); !ok {
		return
	}
	if err := httputil.JSON(w, http.StatusOK, a.importer.Errors(), nil); err != nil {
		a.log.Errorf("IngestErrors handler error: %s", err.Error())
	}
}

func (a *API) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}
	rng, ok := a.rangeOf(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.csv"`)
	if err := export.Leaderboard(w, ix, rng); err != nil {
		a.log.Errorf("ExportLeaderboard handler error: %s", err.Error())
	}
}

func (a *API) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	ix, ok := a.frozen(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="snapshot.json"`)
	if err := export.SnapshotJSON(w, ix); err != nil {
		a.log.Errorf("ExportSnapshot handler error: %s", err.Error())
	}
}
