package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/gymio/internal/config"
	"github.com/claude/gymio/internal/logging"
	"github.com/claude/gymio/internal/server"
	"github.com/claude/gymio/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	migrationsDir := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	boot := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, closer := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, MaxSizeMB: cfg.Log.MaxSizeMB})
	defer closer.Close()
	log.Info("Gymio starting", "version", Version, "auth_mode", cfg.Auth.Mode)

	// Run migrations
	dsn := cfg.Database.DSN()
	version, err := storage.RunMigrations(dsn, *migrationsDir)
	if err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "version", version)

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	loc, err := cfg.Plan.Location()
	if err != nil {
		log.Error("invalid plan timezone", "error", err)
		os.Exit(1)
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn, storage.PoolOptions{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	opts := server.Options{
		APIKey:   cfg.Auth.APIKey,
		PlanCSV:  cfg.Plan.CSVPath,
		Location: loc,
	}

	// Start listener: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		if cfg.Auth.Mode == config.AuthModeTailscale {
			lc, err := tsServer.LocalClient()
			if err != nil {
				log.Error("tsnet local client failed", "error", err)
				os.Exit(1)
			}
			opts.Identity = server.TailscaleIdentity(lc, log)
		}

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		if cfg.Auth.Mode == config.AuthModeTailscale {
			log.Error("auth mode tailscale requires tailscale.enabled")
			os.Exit(1)
		}
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	switch cfg.Auth.Mode {
	case config.AuthModeOIDC:
		oidcAuth, err := server.NewOIDCAuth(ctx, cfg.Auth.OIDC)
		if err != nil {
			log.Error("oidc discovery failed", "issuer", cfg.Auth.OIDC.IssuerURL, "error", err)
			os.Exit(1)
		}
		opts.OIDC = oidcAuth
		opts.Identity = server.OIDCIdentity(oidcAuth.Verifier(), log)
	case config.AuthModeDev:
		opts.Identity = server.DevIdentity(cfg.Auth.DevLogin)
		log.Warn("dev auth: every request acts as one user", "login", cfg.Auth.DevLogin)
	}

	srv := server.New(db, opts, log)
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
