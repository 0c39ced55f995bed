package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/logging"
	"bookcatalog/internal/store"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (defaults to CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Logging, version)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := store.Open(ctx, store.Config{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns},
		store.WithLogger(logger),
		store.WithQueryTimeout(cfg.Database.QueryTimeout),
	)
	if err != nil {
		return err
	}
	defer gw.Close()
	logger.Info("database connection OK", "dsn", store.RedactDSN(cfg.Database.DSN), "dialect", gw.Dialect())

	if err := gw.Migrate(ctx); err != nil {
		return err
	}

	limiter := httpx.NewRateLimitMiddleware(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst,
		httpx.WithTrustedProxies(cfg.HTTP.TrustedProxies),
	)
	defer limiter.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg, logger, gw, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, logger *slog.Logger, gw store.Gateway, limiter *httpx.RateLimitMiddleware) http.Handler {
	service := book.NewService(gw)
	bookHandler := book.NewHTTPHandler(service, logger, book.WithSetup(cfg.HTTP.EnableSetupEndpoint))

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := service.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	bookHandler.RegisterRoutes(router)

	return httpx.Chain(router,
		httpx.RecoveryMiddleware(logger),
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.HTTP.EnableHSTS),
		httpx.CORSMiddleware(cfg.HTTP.CORSAllowedOrigins),
		httpx.RequestSizeLimitMiddleware(cfg.HTTP.MaxBodyBytes),
		limiter.Middleware,
	)
}
