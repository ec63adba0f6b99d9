package handler

import (
	"gorm.io/gorm"

	"github.com/d60-Lab/course-forum/internal/cache"
	"github.com/d60-Lab/course-forum/internal/repository"
	"github.com/d60-Lab/course-forum/internal/service"
)

// Handler 内部运维 API 处理器集合
type Handler struct {
	db        *gorm.DB
	scheduler *service.NotificationScheduler
	jobs      repository.JobRepository
	ledger    repository.LedgerRepository
	roster    *cache.RosterCache
}

func NewHandler(
	db *gorm.DB,
	scheduler *service.NotificationScheduler,
	jobs repository.JobRepository,
	ledger repository.LedgerRepository,
	roster *cache.RosterCache,
) *Handler {
	return &Handler{db: db, scheduler: scheduler, jobs: jobs, ledger: ledger, roster: roster}
}
