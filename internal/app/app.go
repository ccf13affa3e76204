package app

import (
	"context"
	"errors"
	"net/http"

	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/config"
	"refstats/internal/service"
)

type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

type App struct {
	log      logger.Logger
	httpSrv  HTTPServer
	importer *service.ImportService
	sources  config.SourcesConfig
}

func NewApp(log logger.Logger, httpSrv HTTPServer, importer *service.ImportService, sources config.SourcesConfig) *App {
	return &App{log: log, httpSrv: httpSrv, importer: importer, sources: sources}
}

func (a *App) Start() error {
	a.log.Debugf("App starting...")

	go func() {
		if err := a.httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("Start HTTP server is error=%v", err)
		}
	}()

	// One ingestion session per process; the API serves 503 until it lands.
	go func() {
		res, err := a.importer.Run(context.Background(), a.sources)
		if err != nil {
			a.log.Errorf("Ingestion session failed: %v", err)
			return
		}
		a.log.Infof("Ingestion session %s finished (from_cache=%v, %d record errors)",
			res.Session, res.FromCache, len(res.Errors))
	}()

	a.log.Info("App started")
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Debugf("App stopping...")

	if err := a.httpSrv.Shutdown(ctx); err != nil {
		return err
	}

	a.log.Info("App stopped")
	return nil
}
