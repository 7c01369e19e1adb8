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
	"golang.org/x/sync/errgroup"

	"schemagate/internal/auth/cache"
	"schemagate/internal/auth/gate"
	authmetrics "schemagate/internal/auth/metrics"
	"schemagate/internal/auth/models"
	"schemagate/internal/auth/store"
	"schemagate/internal/extraction/handler"
	"schemagate/internal/extraction/prompt"
	"schemagate/internal/extraction/service"
	"schemagate/internal/inference"
	"schemagate/internal/platform/config"
	"schemagate/internal/platform/database"
	"schemagate/internal/platform/health"
	"schemagate/internal/platform/logger"
	"schemagate/internal/platform/redis"
	httptransport "schemagate/internal/transport/http"
	"schemagate/pkg/platform/circuit"
	"schemagate/pkg/platform/middleware/metadata"
	"schemagate/pkg/platform/middleware/request"
	"schemagate/pkg/platform/tracer"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("initializing schemagate",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"model", cfg.Inference.Model,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	trc := tracer.NewOTel()
	authMetrics := authmetrics.New(reg)

	g, ctx := errgroup.WithContext(ctx)

	credentials, storeCheck, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, cacheCheck, closeCache, err := buildCache(ctx, g, cfg, reg, authMetrics, log)
	if err != nil {
		return err
	}
	defer closeCache()

	verifier, err := gate.New(credentials, entries, gate.Config{
		CacheTTL:         cfg.Auth.CacheTTL,
		NegativeCacheTTL: cfg.Auth.NegativeCacheTTL,
		StoreTimeout:     cfg.Auth.StoreTimeout,
	},
		gate.WithLogger(log),
		gate.WithMetrics(authMetrics),
		gate.WithTracer(trc),
	)
	if err != nil {
		return fmt.Errorf("build credential gate: %w", err)
	}

	backend := inference.New(inference.Config{
		BaseURL:     cfg.Inference.URL,
		Model:       cfg.Inference.Model,
		Timeout:     cfg.Inference.Timeout,
		MaxTokens:   cfg.Inference.MaxTokens,
		Temperature: cfg.Inference.Temperature,
	},
		inference.WithBreaker(circuit.New("inference")),
		inference.WithLogger(log),
		inference.WithMetrics(inference.NewMetrics(reg)),
		inference.WithTracer(trc),
	)
	if cfg.Inference.PullOnStart {
		g.Go(func() error {
			pullModel(ctx, backend, log)
			return nil
		})
	}

	extraction, err := service.New(backend, prompt.New(cfg.Extraction.MaxInputChars),
		service.WithLogger(log),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithTracer(trc),
	)
	if err != nil {
		return fmt.Errorf("build extraction service: %w", err)
	}

	healthHandler := health.New(cfg.Inference.Model, backend.Health)
	if storeCheck != nil {
		healthHandler.RegisterCheck("credential_store", storeCheck)
	}
	if cacheCheck != nil {
		healthHandler.RegisterCheck("redis", cacheCheck)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Verifier:       verifier,
		Extraction:     handler.New(extraction, log),
		Health:         healthHandler,
		Metrics:        request.NewMetrics(reg),
		Gatherer:       reg,
		Metadata:       &metadata.Config{TrustedProxies: cfg.Server.TrustedProxies},
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Completions can take as long as the request timeout.
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// buildStore connects to Postgres when DATABASE_URL is set and otherwise
// seeds an in-memory store from DEV_CREDENTIALS.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (gate.CredentialStore, health.CheckFunc, func(), error) {
	if cfg.Database.URL != "" {
		pool, err := database.New(ctx, database.DefaultConfig(cfg.Database.URL))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect credential store: %w", err)
		}
		log.Info("credential store: postgres")
		closeFn := func() {
			if err := pool.Close(); err != nil {
				log.Warn("close database", "error", err)
			}
		}
		return store.NewPostgres(pool.DB()), pool.Health, closeFn, nil
	}

	mem := store.NewInMemory()
	for i, dev := range cfg.Auth.DevCredentials {
		mem.Put(dev.Key, &models.Identity{
			TokenID: fmt.Sprintf("dev-%d", i+1),
			OwnerID: dev.TenantID,
			Active:  true,
		})
	}
	log.Warn("credential store: in-memory development credentials", "count", len(cfg.Auth.DevCredentials))
	return mem, nil, func() {}, nil
}

// buildCache shares verification results through Redis when REDIS_URL is
// set; otherwise each replica keeps its own memory cache.
func buildCache(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Config,
	reg prometheus.Registerer,
	m *authmetrics.Metrics,
	log *slog.Logger,
) (gate.Cache, health.CheckFunc, func(), error) {
	client, err := redis.New(ctx, cfg.Redis, reg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		log.Info("credential cache: redis")
		g.Go(func() error {
			client.RunPoolStats(ctx, poolStatsInterval)
			return nil
		})
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn("close redis", "error", err)
			}
		}
		return cache.NewRedis(client, m), client.Health, closeFn, nil
	}

	mem := cache.NewMemory(cache.WithMetrics(m))
	log.Info("credential cache: memory")
	return mem, nil, func() { _ = mem.Close() }, nil
}

func pullModel(ctx context.Context, backend *inference.Client, log *slog.Logger) {
	log.Info("pulling model", "model", backend.Model())
	if err := backend.Pull(ctx); err != nil {
		log.Warn("model pull failed; requests will fail until the model is available",
			"model", backend.Model(),
			"error", err,
		)
		return
	}
	log.Info("model ready", "model", backend.Model())
}
