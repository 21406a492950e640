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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"solarman/internal/config"
	"solarman/internal/handlers/backup"
	"solarman/internal/handlers/comparison"
	"solarman/internal/handlers/contact"
	"solarman/internal/handlers/site"
	"solarman/internal/logging"
	"solarman/internal/services/ratelimit"
	"solarman/internal/services/storage"
	"solarman/internal/services/submissions"
	"solarman/internal/templates"
	"solarman/internal/version"
)

var (
	cfg      *config.Config
	renderer *templates.Renderer
	files    *storage.Storage
	store    submissions.Store
	limiter  ratelimit.Limiter
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "solarman: %v\n", err)
		os.Exit(1)
	}

	logging.Init(os.Stderr, cfg.Server.LogLevel, cfg.Server.Debug)

	info := version.Get()
	slog.Info("starting solarman", "version", info.Short(), "addr", cfg.Server.ListenAddr,
		"data_dir", cfg.Storage.DataDirectory, "storage", cfg.Storage.Backend)
	if w := info.Warning(); w != "" {
		slog.Warn(w)
	}
	if src := cfg.Source(); src != "" {
		slog.Info("config file loaded", "path", src)
	}

	if err := SetupDependencies(cfg); err != nil {
		slog.Error("setting up dependencies", "error", err)
		os.Exit(1)
	}
	defer Teardown()

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      SetupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		slog.Error("server failed", "error", err)
		return
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("server exited")
}

// SetupDependencies initializes storage, the submission store, the rate
// limiter and templates, then hands them to the handler packages
func SetupDependencies(c *config.Config) error {
	cfg = c

	var err error
	renderer, err = templates.New(cfg.Server.TemplatesDirectory, cfg.Server.Debug)
	if err != nil {
		slog.Warn("could not load templates", "dir", cfg.Server.TemplatesDirectory, "error", err)
		renderer = nil
	}

	files, err = storage.New(cfg.Storage.DataDirectory)
	if err != nil {
		return fmt.Errorf("opening data directory: %w", err)
	}
	if files.IsEncrypted() {
		switch {
		case cfg.Storage.Password == "":
			slog.Warn("storage is encrypted and no password is set; submissions will fail until it is unlocked")
		default:
			if err := files.Unlock(cfg.Storage.Password); err != nil {
				return fmt.Errorf("unlocking storage: %w", err)
			}
			slog.Info("encrypted storage unlocked")
		}
	}

	store, err = submissions.Open(submissions.Options{
		Backend:     cfg.Storage.Backend,
		Files:       files,
		DatabaseURL: cfg.Storage.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("opening submission store: %w", err)
	}

	limiter = newLimiter(cfg.RateLimit)

	site.Initialize(cfg.Comparison, renderer)
	comparison.Initialize(cfg.Comparison, renderer)
	contact.Initialize(store, limiter, renderer)
	backup.Initialize(cfg, store)

	return nil
}

// newLimiter prefers the shared redis limiter and falls back to an
// in-process one when redis is not configured or not reachable
func newLimiter(rc config.RateLimitConfig) ratelimit.Limiter {
	if rc.RedisAddr != "" {
		rl := ratelimit.NewRedis(rc.RedisAddr, rc.Requests, rc.Window)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := rl.Ping(ctx)
		if err == nil {
			slog.Info("rate limiting through redis", "addr", rc.RedisAddr)
			return rl
		}
		slog.Warn("redis unreachable, rate limiting in process", "addr", rc.RedisAddr, "error", err)
		rl.Close()
	}
	return ratelimit.NewMemory(rc.Requests, rc.Window)
}

// Teardown releases what SetupDependencies acquired
func Teardown() {
	switch l := limiter.(type) {
	case *ratelimit.Memory:
		l.Stop()
	case *ratelimit.Redis:
		l.Close()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			slog.Warn("closing submission store", "error", err)
		}
	}
}

// SetupRouter creates and configures the chi router with all routes
func SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	fileServer := http.FileServer(http.Dir(cfg.Server.StaticDirectory))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	site.RegisterRoutes(r)
	comparison.RegisterRoutes(r)
	contact.RegisterRoutes(r)
	backup.RegisterRoutes(r)

	return r
}
