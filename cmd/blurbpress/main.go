// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the blurbpress server. It loads
// configuration, opens the selected storage backend, connects to Valkey,
// sets up routing, and serves the JSON API with graceful shutdown.
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

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"blurbpress/internal/cache"
	"blurbpress/internal/config"
	"blurbpress/internal/database"
	"blurbpress/internal/handlers"
	"blurbpress/internal/middleware"
	"blurbpress/internal/router"
	"blurbpress/internal/session"
)

func main() {
	cmd := &cli.Command{
		Name:   "blurbpress",
		Usage:  "Capability-scoped publishing of blogs, forums and wikis",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending PostgreSQL migrations and exit",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Create the well-known roles and a starter blog, then exit",
				Action: seed,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger. Output is
// text in development and JSON everywhere else.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"storage", cfg.Storage,
	)
	return cfg, nil
}

func migrate(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cfg.Storage != config.StoragePostgres {
		slog.Info("embedded storage needs no migrations")
		return nil
	}

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Migrate(ctx, db)
}

func seed(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	svc, _ := b.engine()
	return database.Seed(ctx, b.roles, svc, cfg.OwnerPassword)
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	svc, resolver := b.engine()

	// Development installs get the well-known roles and a starter blog
	// (no-op if content already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, b.roles, svc, cfg.OwnerPassword); err != nil {
			return err
		}
	}

	// Valkey holds sessions and the public view cache.
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	// In non-development environments, mark session cookies as Secure (HTTPS-only).
	sessionStore := session.NewStore(valkeyClient, cfg.SessionTTL, !cfg.IsDev())

	var views handlers.ViewCache
	if cfg.ViewCacheTTL > 0 {
		vc := cache.NewViewCache(valkeyClient, cfg.ViewCacheTTL)
		// Views cached by an earlier process may belong to another store.
		vc.InvalidateAll(ctx)
		views = vc
	}

	// Login attempts are counted in Valkey so every instance sees them,
	// and locally while Valkey is unreachable.
	localCounter := middleware.NewMemoryCounter()
	defer localCounter.Stop()
	limiter := middleware.NewRateLimiter(cache.NewCounter(valkeyClient), "login", cfg.LoginRateLimit, time.Minute,
		middleware.WithFallback(localCounter),
		middleware.WithTrustedProxies(cfg.TrustedProxies),
	)

	health := func(ctx context.Context) error {
		if err := b.ping(ctx); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		return valkeyClient.Ping(ctx).Err()
	}

	r := router.New(sessionStore, limiter, health,
		handlers.NewAuth(sessionStore, b.roles),
		handlers.NewContent(svc, resolver, b.roles, views),
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.gc(gCtx)
		return nil
	})

	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Graceful shutdown on SIGINT/SIGTERM or when the server fails.
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}
