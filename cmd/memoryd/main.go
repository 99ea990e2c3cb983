// Command memoryd wires together the episodic memory engine's storage,
// retrieval, and learning layers into one long-running process: a
// Postgres-backed durable store, a Redis-backed cache, a circuit
// breaker around both, the write-through synchronizer, the
// spatiotemporal index and query cache inside the façade, and the
// pattern-extraction worker pool. The agent-facing CLI, RPC surface,
// and embedding provider's production I/O are deliberately not built
// here (spec.md §1 Non-goals) — this binary only brings up the core.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jordigilh/kubernaut/internal/config"
	"github.com/jordigilh/kubernaut/pkg/embedding"
	"github.com/jordigilh/kubernaut/pkg/learning/queue"
	"github.com/jordigilh/kubernaut/pkg/learning/scoring"
	"github.com/jordigilh/kubernaut/pkg/memory/facade"
	syncpkg "github.com/jordigilh/kubernaut/pkg/memory/sync"
	"github.com/jordigilh/kubernaut/pkg/metrics"
	"github.com/jordigilh/kubernaut/pkg/storage/breaker"
	"github.com/jordigilh/kubernaut/pkg/storage/cachekv"
	"github.com/jordigilh/kubernaut/pkg/storage/durable"
	"github.com/jordigilh/kubernaut/pkg/storage/querycache"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the memoryd configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "memoryd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	durableStore, err := durable.Open(ctx, cfg.Storage.Durable.DSN, log)
	if err != nil {
		return fmt.Errorf("open durable store: %w", err)
	}
	defer durableStore.Close()

	cacheStore := newCacheStore(cfg.Storage.Cache, log)

	durableBreaker := breaker.New(breaker.DefaultConfig("durable_store"), nil)
	cacheBreaker := breaker.New(breaker.DefaultConfig("cache_store"), nil)
	guardedDurable := breaker.Guard(durableStore, durableBreaker)
	guardedCache := breaker.Guard(cacheStore, cacheBreaker)

	synchronizer := syncpkg.New(guardedDurable, guardedCache, log)

	embedProvider := newEmbeddingProvider(cfg.Embedding)

	queryCache := querycache.NewAdvanced("facade_query_cache")

	patternQueue := queue.New(queueConfigFrom(cfg.Learning.Queue), guardedDurable, synchronizer, scoring.Extractor{}, log)

	memory := facade.New(facade.DefaultConfig(), synchronizer, embedProvider, queryCache, patternQueue, log)
	_ = memory // the façade is the engine's public surface; an RPC/CLI layer (out of scope) would hold this.

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, log)
	metricsServer.StartAsync()

	log.WithField("metrics_port", cfg.Server.MetricsPort).Info("memoryd started")

	<-ctx.Done()
	log.Info("shutdown signal received, draining pattern queue")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	patternQueue.Shutdown()
	if err := patternQueue.WaitUntilEmpty(shutdownCtx, 30*time.Second); err != nil {
		log.WithError(err).Warn("pattern queue did not drain before shutdown deadline")
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server did not shut down cleanly")
	}

	log.Info("memoryd stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func newCacheStore(cfg config.CacheConfig, log *logrus.Logger) *cachekv.Store {
	if !cfg.Enabled {
		return cachekv.New(redis.NewClient(&redis.Options{Addr: "disabled:0"}), log)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return cachekv.New(client, log)
}

func newEmbeddingProvider(cfg config.EmbeddingConfig) embedding.Provider {
	switch cfg.Provider {
	case "local", "":
		return embedding.NewLocalProvider(cfg.Dimensions)
	default:
		// A real deployment would construct a langchaingo-backed
		// embedding.RemoteProvider here, configured from cfg.Endpoint
		// and cfg.Model. Without production credentials to wire, the
		// local provider stands in so the rest of the engine still
		// has a working embedding contract to call.
		return embedding.NewLocalProvider(cfg.Dimensions)
	}
}

func queueConfigFrom(cfg config.QueueConfig) queue.Config {
	qcfg := queue.DefaultConfig()
	if cfg.Workers > 0 {
		qcfg.Workers = cfg.Workers
	}
	if cfg.MaxQueueSize > 0 {
		qcfg.MaxQueueSize = cfg.MaxQueueSize
	}
	if cfg.PollInterval > 0 {
		qcfg.PollInterval = cfg.PollInterval
	}
	return qcfg
}
