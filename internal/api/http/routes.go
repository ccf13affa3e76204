package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"refstats/internal/api/http/mw"
	"refstats/internal/metrics"
)

func BuildRouter(
	api *API,
	logMW *mw.LoggingMiddleware,
	gzipMW *mw.GzipMiddleware,
	corsMW *mw.CORSMiddleware,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if logMW != nil {
		r.Use(logMW.Handler)
	}
	if gzipMW != nil {
		r.Use(gzipMW.Handler)
	}
	if corsMW != nil {
		r.Use(corsMW.Handler())
	}

	// tech endpoints
	r.Get("/healthz", api.Healthz)
	r.Get("/readiness", api.Readiness)
	r.Mount("/metrics", metrics.Handler())

	r.Route("/api", func(apiR chi.Router) {
		apiR.Route("/referrals/{code}", func(rr chi.Router) {
			rr.Get("/metrics", api.ReferralMetrics)
			rr.Get("/series", api.DailySeries)
			rr.Get("/categories", api.CategoryBreakdown)
			rr.Get("/tokens", api.TokenBreakdown)
			rr.Get("/sankey", api.SwapFlowSankey)
		})
		apiR.Get("/propagation", api.PropagationRank)
		apiR.Get("/propagation/{code}", api.PropagationStats)
		apiR.Get("/errors", api.IngestErrors)

		apiR.Route("/export", func(er chi.Router) {
			er.Get("/leaderboard.csv", api.ExportLeaderboard)
			er.Get("/snapshot.json", api.ExportSnapshot)
		})
	})

	return r
}
