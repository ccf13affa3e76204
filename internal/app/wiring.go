package app

import (
	"context"
	"fmt"
	"time"

	"github.com/grafana/pyroscope-go"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"

	httpapi "refstats/internal/api/http"
	"refstats/internal/config"
	"refstats/internal/dedupe"
	"refstats/internal/domain"
	"refstats/internal/metrics"
	"refstats/internal/pubsub"
	natspub "refstats/internal/pubsub/nats"
	"refstats/internal/service"
	"refstats/internal/stores/clickhouse"
	rds "refstats/internal/stores/redis"
)

type Container struct {
	app *App

	// infra
	redis    *rds.Client
	ch       *clickhouse.Conn
	chWriter *clickhouse.Writer
	nc       *natspub.Client

	httpSrv *httpapi.Server

	profiler *pyroscope.Profiler
}

func (c *Container) Start() error {
	return c.app.Start()
}

func (c *Container) Stop(ctx context.Context) error {
	if err := c.app.Shutdown(ctx); err != nil {
		return fmt.Errorf("app shutdown is failed, error=%w", err)
	}
	return nil
}

// Build constructs the whole object graph. Optional collaborators (cache,
// archive, progress fan-out, dedupe) stay nil when disabled; the import
// service degrades gracefully without them.
func Build(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialized logger")

	profiler, err := metrics.InitPProf(cfg.App.InstanceID, &cfg.Metrics.Pyroscope)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize pyroscope: %w", err)
	}

	c := &Container{profiler: profiler}

	var snapCache *rds.SnapshotCache
	if cfg.Cache.Enabled {
		rdb, err := rds.New(ctx, &cfg.Cache.Redis)
		if err != nil {
			// cache outage is not fatal, the session builds fresh
			lg.Errorf("Failed to initialize redis client, caching disabled: %v", err)
		} else {
			c.redis = rdb
			snapCache = rds.NewSnapshotCache(lg, rdb, &cfg.Cache)
			lg.Infof("Successfully initialized snapshot cache, addr=%s", cfg.Cache.Redis.Addr)
		}
	}

	if cfg.Archive.Enabled {
		ch, err := clickhouse.New(ctx, &cfg.Archive)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize clickhouse client: %w", err)
		}
		c.ch = ch
		c.chWriter = clickhouse.NewWriter(lg, ch, cfg.Archive.Writer)
		lg.Info("Successfully initialized clickhouse archive writer")
	}

	if cfg.PubSub.NATS.Enabled {
		nc, err := natspub.New(lg, &cfg.PubSub.NATS)
		if err != nil {
			lg.Errorf("Failed to initialize nats client, progress fan-out disabled: %v", err)
		} else {
			c.nc = nc
			lg.Infof("Successfully initialized nats client, url=%s", cfg.PubSub.NATS.URL)
		}
	}

	var deduper dedupe.Deduper
	if cfg.Index.DedupeByHash {
		deduper = dedupe.NewInMemoryDedupe(lg)
	}

	opts := domain.Options{
		KeepFullTx:   cfg.Index.KeepFullTx,
		MaxStoredTxs: cfg.Index.MaxStoredTxs,
	}

	importer := service.NewImportService(lg, snapCache, asBroadcaster(c.nc), c.chWriter, deduper, opts)

	c.httpSrv = httpapi.NewServer(lg, &cfg.API.HTTP, importer)
	lg.Info("Successfully initialized HTTP server")

	c.app = NewApp(lg, c.httpSrv, importer, cfg.Sources)

	cleanupF := func() {
		ctxClean, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if c.profiler != nil {
			if err := c.profiler.Stop(); err != nil {
				lg.Errorf("Failed to stop profiler: %v", err)
			}
		}
		if c.chWriter != nil {
			if err := c.chWriter.Close(ctxClean); err != nil {
				lg.Errorf("Failed to close clickhouse writer: %v", err)
			}
		}
		if c.ch != nil {
			if err := c.ch.Close(); err != nil {
				lg.Errorf("Failed to close clickhouse client: %v", err)
			}
		}
		if c.nc != nil {
			if err := c.nc.Close(); err != nil {
				lg.Errorf("Failed to close nats client: %v", err)
			}
		}
		if c.redis != nil {
			if err := c.redis.Close(); err != nil {
				lg.Errorf("Failed to close redis client: %v", err)
			}
		}

		lg.Info("Successfully cleaned up dependencies")
	}

	lg.Info("Successfully initialized wiring")
	return c, cleanupF, nil
}

// asBroadcaster avoids handing the service a typed-nil interface.
func asBroadcaster(c *natspub.Client) pubsub.Broadcaster {
	if c == nil {
		return nil
	}
	return c
}
