package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"recipestock/internal/config"
	"recipestock/internal/infra"
	"recipestock/internal/router"
	"recipestock/internal/service"
	"recipestock/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title       recipestock API
// @version     1.0
// @description Recipe-based inventory: every sale deducts its ingredients atomically.
// @BasePath    /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis is optional: without it the cost cache, alert scan and report
	// jobs are off, while sales keep working.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
	} else {
		log.Warn().Msg("REDIS_URL empty, background jobs disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg, mailCB)
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP not configured, alert and report mails are logged only")
	}

	var pool *sync.WaitGroup
	if rdb != nil {
		// Worker handlers are wired here so the pool sees the same service
		// graph as the HTTP layer.
		dispatcher := worker.NewDispatcher(rdb)
		svc := service.NewServices(db, dispatcher)
		pool = worker.StartWorkerPool(ctx, rdb, &worker.Handlers{
			StockAlert:  worker.NewAlertWorker(mailer, cfg.AlertEmailTo),
			DailyReport: worker.NewReportWorker(svc.Sales, svc.Inventory, mailer, cfg.AlertEmailTo, cfg.PDFStoragePath),
		}, cfg.WorkerPoolSize)
		worker.StartAlertCron(ctx, worker.AlertCronConfig{
			Inventory: svc.Inventory,
			Alerts:    dispatcher,
			RDB:       rdb,
			CB:        mailCB,
			Interval:  cfg.AlertScanInterval,
		})
	}

	r := router.New(ctx, cfg, db, rdb, mailCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("recipestock listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Let in-flight jobs finish before closing connections.
	cancel()
	if pool != nil {
		pool.Wait()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
