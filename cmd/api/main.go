package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"stackzero/internal/auth0"
	"stackzero/internal/config"
	transporthttp "stackzero/internal/http"
	"stackzero/internal/identity"
	"stackzero/internal/platform/database"
	"stackzero/internal/platform/logging"
	"stackzero/internal/platform/migrate"
	"stackzero/internal/session"
	"stackzero/internal/user"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsProduction())

	userRepo, cleanup, err := buildUserRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize user repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	providerClient := &http.Client{Timeout: 10 * time.Second}

	keys := identity.NewKeySetCache(cfg.Auth0.Domain, providerClient)
	if _, err := keys.Refresh(ctx); err != nil {
		// A service that cannot verify tokens has no business accepting logins.
		logger.Error("failed to fetch provider key set", "error", err)
		os.Exit(1)
	}
	logger.Info("provider key set loaded", "domain", cfg.Auth0.Domain)

	provider := auth0.NewClient(cfg.Auth0, providerClient, keys)

	sessionStore, closeSessions, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	if closeSessions != nil {
		defer closeSessions()
	}
	sessions := session.NewManager(sessionStore, cfg.SessionTTL, cfg.IsProduction(), logger)

	authHandler := transporthttp.NewAuthHandler(provider, user.NewService(userRepo), sessions, logger)
	router := transporthttp.NewRouter(cfg, authHandler, sessions, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("stackzero auth API listening", "addr", srv.Addr, "store", cfg.DataStore, "sessions", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildUserRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (user.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory user repository")
		return user.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return user.NewPostgresRepository(db), cleanup, nil
}

func buildSessionStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if !cfg.UseRedisSessions() {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil, nil
	}

	store, err := session.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("connected to redis for sessions")
	return store, func() { _ = store.Close() }, nil
}
