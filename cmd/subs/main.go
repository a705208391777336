package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/asset-subs/internal/config"
	"github.com/Spok95/asset-subs/internal/domain/catalog"
	"github.com/Spok95/asset-subs/internal/domain/consumption"
	"github.com/Spok95/asset-subs/internal/domain/lots"
	"github.com/Spok95/asset-subs/internal/domain/subscriptions"
	"github.com/Spok95/asset-subs/internal/infra/db"
	httpx "github.com/Spok95/asset-subs/internal/infra/http"
	"github.com/Spok95/asset-subs/internal/infra/logger"
	"github.com/Spok95/asset-subs/internal/infra/notify"
	"github.com/Spok95/asset-subs/internal/workflow"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	notifier, err := notify.New(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Error("telegram notifier failed", "err", err)
		return
	}
	if notifier != nil {
		log.Info("conflict alerts enabled", "chat", cfg.Telegram.AdminChatID)
	}

	subsRepo := subscriptions.NewRepo(pool)
	catalogRepo := catalog.NewRepo(pool)
	lotsRepo := lots.NewRepo(pool)
	consRepo := consumption.NewRepo(pool)

	store := &workflow.PgStore{
		Subs:      subsRepo,
		Catalog:   catalogRepo,
		Cons:      consRepo,
		ChunkSize: cfg.Validator.ChunkSize,
	}
	flow := workflow.New(store, log, notifier)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, httpx.Deps{
		Log:     log,
		Flow:    flow,
		Subs:    subsRepo,
		Catalog: catalogRepo,
		Lots:    lotsRepo,
		Cons:    consRepo,
	})
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
