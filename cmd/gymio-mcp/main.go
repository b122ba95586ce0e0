package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/gymio/internal/config"
	"github.com/claude/gymio/internal/mcp"
	"github.com/claude/gymio/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remote := flag.String("remote", "", "Gymio server URL; when set, data is read over its REST API")
	token := flag.String("token", os.Getenv("GYMIO_TOKEN"), "bearer token for a remote server using OIDC")
	login := flag.String("login", "", "user login (local mode, defaults to auth.dev_login)")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var (
		ds   mcp.DataSource
		opts mcp.Options
		uid  = 1
	)

	if *remote != "" {
		ds = mcp.NewHTTPClient(*remote, *token)
		log.Info("remote mode", "server", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		loc, err := cfg.Plan.Location()
		if err != nil {
			log.Error("invalid plan timezone", "error", err)
			os.Exit(1)
		}
		opts.Location = loc

		ctx := context.Background()
		db, err := storage.New(ctx, cfg.Database.DSN(), storage.PoolOptions{MaxConns: 4})
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		name := *login
		if name == "" {
			name = cfg.Auth.DevLogin
		}
		if name == "" {
			log.Error("-login is required unless auth.mode is dev")
			os.Exit(1)
		}
		uid, err = db.GetOrCreateUser(ctx, name, name)
		if err != nil {
			log.Error("failed to resolve user", "login", name, "error", err)
			os.Exit(1)
		}
		ds = db
		log.Info("local mode", "login", name)
	}

	s := mcp.New(ds, Version, opts, log)
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, uid)
	}))
	if err != nil {
		fmt.Fprintln(os.Stderr, "mcp server error:", err)
		os.Exit(1)
	}
}
