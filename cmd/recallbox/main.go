package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/conorfennell/recallbox/internal/analytics"
	"github.com/conorfennell/recallbox/internal/config"
	"github.com/conorfennell/recallbox/internal/dueset"
	"github.com/conorfennell/recallbox/internal/scheduler"
	"github.com/conorfennell/recallbox/internal/storage"
	catsync "github.com/conorfennell/recallbox/internal/sync"
	"github.com/conorfennell/recallbox/internal/web"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB)

	loc := cfg.Location()
	sched := scheduler.New(db)
	due := dueset.New(db, loc)
	engine := analytics.New(db, db, loc)
	syncer := catsync.New(db, cfg.Repos)

	if cfg.Sync {
		if _, err := syncer.Run(context.Background()); err != nil {
			slog.Error("startup catalog sync failed", "error", err)
		}
	}

	server := web.NewServer(db, sched, due, engine, syncer)
	slog.Info("listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
