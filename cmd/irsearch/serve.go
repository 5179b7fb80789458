package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus/consumer"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus/watcher"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/redis"
)

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting retrieval service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"workers", cfg.Index.Workers,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdownMetrics, err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err != nil {
			return err
		}
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	opts := []searcher.Option{searcher.WithIndexConfig(cfg.Index), searcher.WithMetrics(m)}

	var queryCache *cache.QueryCache
	dialCtx, cancelDial := context.WithTimeout(ctx, 5*time.Second)
	redisClient, err := pkgredis.NewClient(dialCtx, cfg.Redis)
	cancelDial()
	switch {
	case errors.Is(err, pkgredis.ErrDisabled):
		slog.Info("redis not configured, result caching disabled")
	case err != nil:
		slog.Warn("redis unavailable, result caching disabled", "error", err)
	default:
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, cache.WithMetrics(m))
		opts = append(opts, searcher.WithCache(queryCache))
		checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	// the service is created before its source is wired so corpus
	// collaborators can invalidate it
	var source corpus.Source
	svc := searcher.New(corpus.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
		return source.Load(ctx)
	}), analysis.New(), opts...)

	cleanup, err := startCorpus(ctx, cfg, svc, checker, &source)
	if err != nil {
		return err
	}
	defer cleanup()

	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms),
		}
	})

	if _, err := svc.Index(ctx); err != nil {
		slog.Warn("initial index build failed, will retry on first query", "error", err)
	}

	var qc handler.Cache
	if queryCache != nil {
		qc = queryCache
	}
	h := handler.New(svc, qc, cfg.Query.DefaultProximity)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	slog.Info("retrieval service stopped")
	return nil
}

// startCorpus wires the configured corpus source into *source and starts
// whatever keeps it current. The returned func releases its resources.
func startCorpus(
	ctx context.Context,
	cfg *config.Config,
	svc *searcher.Service,
	checker *health.Checker,
	source *corpus.Source,
) (func(), error) {
	switch cfg.Corpus.Source {
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := client.Migrate(ctx); err != nil {
			client.Close()
			return nil, err
		}
		*source = corpus.NewPostgresSource(client)
		checker.Register("postgres", health.Ping(client.Ping, health.StatusDown))
		slog.Info("corpus source: postgres", "database", cfg.Postgres.Database)
		return func() { client.Close() }, nil

	case config.SourceKafka:
		store := corpus.NewMemoryStore()
		*source = store
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Documents,
			consumer.HandleMessage(store, func() { svc.Invalidate("kafka") }),
			kafka.Replay(),
		)
		dc := consumer.New(kc)
		go func() {
			if err := dc.Start(ctx); err != nil {
				slog.Error("document consumer error", "error", err)
			}
		}()
		slog.Info("corpus source: kafka", "topic", cfg.Kafka.Topics.Documents)
		return func() {}, nil

	default:
		*source = corpus.NewDirSource(cfg.Corpus.Dir)
		slog.Info("corpus source: directory", "dir", cfg.Corpus.Dir)
		if !cfg.Corpus.Watch {
			return func() {}, nil
		}
		w := watcher.New(cfg.Corpus.Dir, func() { svc.Invalidate("watcher") }, watcher.WithDebounce(cfg.Corpus.Debounce))
		if err := w.Start(ctx); err != nil {
			slog.Warn("corpus watcher unavailable, index will not refresh automatically", "error", err)
			return func() {}, nil
		}
		return w.Stop, nil
	}
}
