package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"hairdash/internal/api"
	"hairdash/internal/blob"
	"hairdash/internal/circuit"
	"hairdash/internal/config"
	"hairdash/internal/identity"
	"hairdash/internal/limiter"
	"hairdash/internal/metrics"
	"hairdash/internal/middleware"
	"hairdash/internal/observability"
	"hairdash/internal/store"
	"hairdash/internal/vision"
	"hairdash/internal/webhook"
)

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	switch cmd {
	case "migrate":
		runMigrations(cfg, logger)
	case "seed":
		runSeed(cfg, logger)
	case "token":
		printToken(cfg)
	case "serve":
		serve(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve, migrate, seed or token)\n", cmd)
		os.Exit(2)
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("service", cfg.OtelServiceName))
}

func connect(ctx context.Context, cfg config.Config, logger *zap.Logger) *store.Store {
	st, err := store.Connect(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: 5 * time.Minute,
	})
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	return st
}

func serve(cfg config.Config, logger *zap.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.Tracing{
		Endpoint:    cfg.OtelEndpoint,
		Service:     cfg.OtelServiceName,
		Environment: cfg.AppEnv,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracer(context.Background())
	}

	st := connect(ctx, cfg, logger)
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		logger.Warn("database unreachable at startup, analytics will serve fallback data", zap.Error(err))
	}

	metrics.Register(prometheus.DefaultRegisterer)
	dispatcher := webhook.New(st, logger)

	srv := &api.Server{
		Store:    st,
		Webhooks: dispatcher,
		Circuits: circuit.NewSet(20, 10, 0.5, 30*time.Second),
		Logger:   logger,
		AI: vision.New(vision.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.VisionModel,
			EnableReal: cfg.EnableRealCalls,
			RPS:        float64(cfg.AnalyzeQPS),
		}),
		Auth:           middleware.AdminAuth(cfg.JWTSecret, cfg.AuthDisabled),
		Production:     cfg.Production(),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if cfg.IdentitySecretKey != "" {
		srv.Team = identity.New(cfg.IdentityBaseURL, cfg.IdentitySecretKey, cfg.IdentityRPS)
	} else {
		logger.Warn("IDENTITY_SECRET_KEY not set, team management disabled")
	}
	if cfg.BlobToken != "" {
		srv.Blob = blob.New(cfg.BlobBaseURL, cfg.BlobToken)
	} else {
		logger.Warn("BLOB_TOKEN not set, uploads disabled")
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		srv.Limiter = limiter.New(redisClient, cfg.AnalyzeQPS, cfg.AnalyzeConcurrency)
	}
	if cfg.AuthDisabled {
		logger.Warn("admin authentication is disabled")
	}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{api.DegradedHeader, middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(func(next http.Handler) http.Handler { return otelhttp.NewHandler(next, "http") })
	router.Use(middleware.RequestID)
	router.Use(metrics.Instrument)
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", srv.Routes())

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	dispatcher.Wait()
}

func runMigrations(cfg config.Config, logger *zap.Logger) {
	ctx := context.Background()
	st := connect(ctx, cfg, logger)
	defer st.Close()
	if err := st.Migrate(ctx, logger); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
	logger.Info("migrations applied")
}

func runSeed(cfg config.Config, logger *zap.Logger) {
	ctx := context.Background()
	st := connect(ctx, cfg, logger)
	defer st.Close()
	b, err := os.ReadFile(resolvePath("scripts/seed.sql"))
	if err != nil {
		logger.Fatal("read seed file failed", zap.Error(err))
	}
	if _, err := st.DB.Exec(ctx, string(b)); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed completed")
}

// printToken issues a short-lived admin token for local development.
func printToken(cfg config.Config) {
	email := "admin@localhost"
	if len(os.Args) > 2 {
		email = os.Args[2]
	}
	token, err := middleware.NewAdminToken(cfg.JWTSecret, "local", email, 12*time.Hour)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func resolvePath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if _, err := os.Stat("../" + path); err == nil {
		return "../" + path
	}
	return path
}
