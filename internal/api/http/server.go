package http

import (
	"compress/gzip"
	"context"
	"net/http"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/api/http/mw"
	"refstats/internal/config"
	"refstats/internal/service"
)

type Server struct {
	log logger.Logger
	srv *http.Server
}

func NewServer(log logger.Logger, cfg *config.HTTPConfig, importer *service.ImportService) *Server {
	api := NewAPI(log, importer)

	logMW := mw.NewLogging(log)
	gzipMW := mw.NewGzip(gzip.BestSpeed, log)

	var corsMW *mw.CORSMiddleware
	if cfg.CORS.Enabled {
		corsMW = mw.NewCORS(&cfg.CORS)
	}

	router := BuildRouter(api, logMW, gzipMW, corsMW)

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &Server{
		log: log,
		srv: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  orDefault(cfg.ReadTimeout, 10*time.Second),
			WriteTimeout: orDefault(cfg.WriteTimeout, 30*time.Second),
			IdleTimeout:  orDefault(cfg.IdleTimeout, 60*time.Second),
		},
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
