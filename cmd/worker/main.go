package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/course-forum/config"
	"github.com/d60-Lab/course-forum/internal/cache"
	"github.com/d60-Lab/course-forum/internal/repository"
	"github.com/d60-Lab/course-forum/internal/service"
	"github.com/d60-Lab/course-forum/pkg/database"
	"github.com/d60-Lab/course-forum/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// 纯 worker 进程：与 cmd/server 共享同一个库，多实例水平扩展时部署若干份即可，
// 互斥完全由 Job Store 的原子认领保证
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

	worker := service.NewNotificationWorker(jobRepo, ledgerRepo, messageRepo, participantRepo, roster, service.WorkerOptions{
		CycleInterval: cfg.Worker.CycleInterval,
		CycleJitter:   cfg.Worker.CycleJitter,
		ClaimTimeout:  cfg.Worker.ClaimTimeout,
		MaxJobAge:     cfg.Worker.MaxJobAge,
		SendInterval:  cfg.Worker.SendInterval,
	})
	stop := worker.Start()

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	<-ctx.Done()

	logger.Info("worker shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = stop(shutdownCtx)
}
