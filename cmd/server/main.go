package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/course-forum/config"
	"github.com/d60-Lab/course-forum/internal/api"
	"github.com/d60-Lab/course-forum/internal/api/handler"
	"github.com/d60-Lab/course-forum/internal/cache"
	"github.com/d60-Lab/course-forum/internal/repository"
	"github.com/d60-Lab/course-forum/internal/service"
	"github.com/d60-Lab/course-forum/pkg/database"
	"github.com/d60-Lab/course-forum/pkg/logger"
	"github.com/d60-Lab/course-forum/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.App.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		must(struct{}{}, sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.App.Env}))
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if cfg.Tracing.Enabled {
		shutdown := must(tracing.Init(ctx, cfg))
		defer shutdown(context.Background())
	}

	db := must(database.InitDB(cfg))
	must(struct{}{}, database.Migrate(db))

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	jobRepo := repository.NewJobRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	roster := cache.NewRosterCache(participantRepo, rdb, cfg.Redis.RosterTTL)
	scheduler := service.NewNotificationScheduler(jobRepo, ledgerRepo)

	worker := service.NewNotificationWorker(jobRepo, ledgerRepo, messageRepo, participantRepo, roster, service.WorkerOptions{
		CycleInterval: cfg.Worker.CycleInterval,
		CycleJitter:   cfg.Worker.CycleJitter,
		ClaimTimeout:  cfg.Worker.ClaimTimeout,
		MaxJobAge:     cfg.Worker.MaxJobAge,
		SendInterval:  cfg.Worker.SendInterval,
	})
	stopWorker := worker.Start()

	h := handler.NewHandler(db, scheduler, jobRepo, ledgerRepo, roster)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg, h),
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = stopWorker(shutdownCtx)
}
