package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/coalesce"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/engine"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/handler"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/proto"
	pkgredis "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/rpc"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	defaultStrategy, err := engine.ParseStrategy(cfg.Finder.Strategy)
	if err != nil {
		slog.Error("invalid default strategy", "error", err)
		os.Exit(1)
	}
	slog.Info("starting finder service",
		"port", cfg.Server.Port,
		"strategy", defaultStrategy.String(),
		"max_dimension", cfg.Finder.MaxDimension,
		"workers", cfg.Finder.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m)
		defer shutdownMetrics(context.Background())
	}

	pool, err := ants.NewPool(cfg.Finder.Workers)
	if err != nil {
		slog.Error("failed to create worker pool", "error", err)
		os.Exit(1)
	}
	defer pool.Release()

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		if pool.IsClosed() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "worker pool closed"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d/%d workers busy", pool.Running(), pool.Cap()),
		}
	})

	limiter := setupRateLimiter(ctx, cfg, checker)

	var tracker handler.Tracker
	aggregator := analytics.NewAggregator(cfg.Analytics.TopWords)
	var history analytics.SnapshotLister
	if cfg.Analytics.Enabled {
		collector, lister, cleanup := setupAnalytics(ctx, cfg, m, aggregator, checker)
		defer cleanup()
		tracker = collector
		history = lister
	} else {
		tracker = localTracker{aggregator}
		slog.Info("kafka analytics disabled, recording find events in-process")
	}

	h := handler.New(pool, coalesce.New(), tracker, m, handler.Config{
		MaxDimension:    cfg.Finder.MaxDimension,
		Workers:         cfg.Finder.Workers,
		DefaultStrategy: defaultStrategy,
		FindTimeout:     cfg.Finder.FindTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	})
	analyticsH := analytics.NewHandler(aggregator, history)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/find", h.Find)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if limiter != nil {
		chain = middleware.RateLimit(limiter, cfg.RateLimit.Window, m)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcServer = rpc.NewServer(cfg.Server.WriteTimeout)
		rpcServer.Register(proto.FindMethod, h.FindRPC)
		go func() {
			if err := rpcServer.ListenAndServe(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if rpcServer != nil {
			if err := rpcServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("rpc server shutdown error", "error", err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("finder service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("finder service stopped")
}

// localTracker feeds events straight into the aggregator when Kafka is not
// in use.
type localTracker struct {
	aggregator *analytics.Aggregator
}

func (t localTracker) Track(event analytics.FindEvent) {
	t.aggregator.Record(event)
}

func setupRateLimiter(ctx context.Context, cfg *config.Config, checker *health.Checker) middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		slog.Info("rate limiting disabled")
		return nil
	}

	if cfg.RateLimit.Backend == "redis" {
		limiter, client, err := newRedisLimiter(cfg)
		if err == nil {
			checker.Register("redis", health.PingCheck(client.Ping, health.StatusDegraded))
			go func() {
				<-ctx.Done()
				client.Close()
			}()
			slog.Info("rate limiting enabled", "backend", "redis", "addr", cfg.Redis.Addr,
				"requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window)
			return limiter
		}
		slog.Warn("redis unavailable, falling back to in-memory rate limiting", "error", err)
		checker.Register("redis", health.Static(health.StatusDegraded, "unavailable, using in-memory limiter"))
	}

	limiter, err := ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		slog.Error("failed to create rate limiter", "error", err)
		os.Exit(1)
	}
	limiter.StartCleanup(ctx, cfg.RateLimit.Window)
	slog.Info("rate limiting enabled", "backend", "memory",
		"requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window)
	return limiter
}

func newRedisLimiter(cfg *config.Config) (*ratelimit.RedisLimiter, *pkgredis.Client, error) {
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	limiter, err := ratelimit.NewRedis(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return limiter, client, nil
}

// setupAnalytics wires the Kafka collector and consumer around aggregator
// and, when Postgres is reachable, periodic snapshots. The returned cleanup
// flushes the collector and waits for the last snapshot.
func setupAnalytics(ctx context.Context, cfg *config.Config, m *metrics.Metrics, aggregator *analytics.Aggregator, checker *health.Checker) (*analytics.Collector, analytics.SnapshotLister, func()) {
	topic := cfg.Kafka.Topics.FindEvents
	producer := kafka.NewProducer(cfg.Kafka, topic)

	breaker := resilience.NewCircuitBreaker("kafka-publish", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		if breaker.GetState() == resilience.StateOpen {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "publish circuit open"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	collector := analytics.NewCollector(producer, analytics.CollectorConfig{
		BufferSize: cfg.Analytics.BufferSize,
		OnDrop:     func(n int) { m.AnalyticsDropped.Add(float64(n)) },
		Breaker:    breaker,
	})
	collector.Start(ctx)
	slog.Info("analytics collector started", "topic", topic)

	consumer := kafka.NewConsumer(cfg.Kafka, topic, aggregator.HandleEvent())
	go func() {
		if err := aggregator.Run(ctx, consumer); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	var (
		history       analytics.SnapshotLister
		snapshotsDone <-chan struct{}
		db            *postgres.Client
	)
	if cfg.Analytics.SnapshotInterval > 0 {
		var err error
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
			checker.Register("postgres", health.Static(health.StatusDegraded, "snapshots disabled"))
		} else {
			store := snapshot.NewStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Warn("snapshot schema setup failed, analytics snapshots disabled", "error", err)
			} else {
				history = store
				snapshotsDone = store.StartPeriodic(ctx, aggregator, cfg.Analytics.SnapshotInterval)
				slog.Info("analytics snapshots enabled", "interval", cfg.Analytics.SnapshotInterval)
			}
			checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDegraded))
		}
	}

	cleanup := func() {
		collector.Close()
		if err := producer.Close(); err != nil {
			slog.Error("failed to close kafka producer", "error", err)
		}
		if snapshotsDone != nil {
			<-snapshotsDone
		}
		if db != nil {
			db.Close()
		}
	}
	return collector, history, cleanup
}
