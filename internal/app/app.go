package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/kervanis/order-engine/internal/domain/pricing"
	"github.com/kervanis/order-engine/internal/handler"
	"github.com/kervanis/order-engine/internal/match"
	"github.com/kervanis/order-engine/internal/parse"
	"github.com/kervanis/order-engine/internal/resolve"
	"github.com/kervanis/order-engine/internal/semantic"
	"github.com/kervanis/order-engine/internal/storage/postgres"
	"github.com/kervanis/order-engine/internal/storage/rediscache"
	"github.com/kervanis/order-engine/pkg/health"
	"github.com/kervanis/order-engine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Embedding cache: Redis when configured, otherwise in-process noop.
	var vectorCache semantic.VectorCache = semantic.NoopCache{}
	if cfg.Redis.Addr != "" {
		rc := rediscache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = rc.Close() }()
		healthSvc.AddReadinessCheck("redis", 5*time.Second, health.PingCheck(rc))
		vectorCache = rc
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	priceRepo := postgres.NewPriceRepository(pool)

	// Parser and matcher: LLM-backed when an OpenAI key is configured,
	// otherwise the local parser and the lexical cascade alone.
	var (
		parser   parse.Parser = parse.Local{}
		embedder match.Embedder
	)
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey)
		parser = parse.NewCompletion(client, cfg.OpenAI.ChatModel, cfg.OpenAI.ParseTimeout)
		embedder = semantic.NewOpenAI(client, vectorCache, semantic.Config{
			Model:             cfg.OpenAI.EmbeddingModel,
			Timeout:           cfg.OpenAI.EmbedTimeout,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		lg.Info("LLM parsing and semantic matching enabled",
			zap.String("chat_model", cfg.OpenAI.ChatModel),
			zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		)
	} else {
		lg.Info("No OpenAI key configured, using local parser only")
	}

	matcher := match.New(embedder, cfg.OpenAI.SemanticThreshold)
	resolver := resolve.NewResolver(parser, matcher, pricing.NewResolver(),
		resolve.WithWorkers(cfg.Resolve.Workers),
		resolve.WithTaxRate(decimal.NewFromFloat(cfg.Resolve.TaxRate)),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.New(catalogRepo, priceRepo, resolver).Register(mux)

	chain := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(chain, "order-engine",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
