package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/course-forum/internal/model"
)

// JobRepository 通知任务队列仓储
type JobRepository interface {
	// Schedule 在 tx 上登记一次派发：已有未认领任务则刷新其时间（快速编辑合并），否则插入
	Schedule(ctx context.Context, tx *gorm.DB, messageID string, now time.Time) error

	// ClaimNext 原子认领最老的一个到期任务；无任务可领返回 (nil, nil)
	ClaimNext(ctx context.Context, now time.Time) (*model.NotificationJob, error)

	// ReapStale 清空租约早于 before 的任务（持有者视为已崩溃），返回回收数
	ReapStale(ctx context.Context, before time.Time) (int64, error)

	// ExpireOlderThan 删除创建时间早于 before 的任务，返回被删任务供记录日志
	ExpireOlderThan(ctx context.Context, before time.Time) ([]model.NotificationJob, error)

	// Delete 任务处理成功后删除
	Delete(ctx context.Context, id string) error

	// CountPending / CountClaimed 队列观测
	CountPending(ctx context.Context) (int64, error)
	CountClaimed(ctx context.Context) (int64, error)
}

type jobRepository struct{ db *gorm.DB }

func NewJobRepository(db *gorm.DB) JobRepository { return &jobRepository{db: db} }

func (r *jobRepository) Schedule(ctx context.Context, tx *gorm.DB, messageID string, now time.Time) error {
	res := tx.WithContext(ctx).Model(&model.NotificationJob{}).
		Where("message_id = ? AND started_at IS NULL", messageID).
		Updates(map[string]any{"created_at": now, "start_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	job := &model.NotificationJob{
		ID:        uuid.New().String(),
		MessageID: messageID,
		CreatedAt: now,
		StartAt:   now,
	}
	return tx.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) ClaimNext(ctx context.Context, now time.Time) (*model.NotificationJob, error) {
	var job model.NotificationJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("start_at <= ? AND started_at IS NULL", now).Order("start_at")
		if tx.Dialector.Name() == "postgres" {
			// 多 worker 并发时跳过他人锁定的行；sqlite 无行锁，靠下面的条件更新兜底
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.First(&job).Error; err != nil {
			return err
		}
		res := tx.Model(&model.NotificationJob{}).
			Where("id = ? AND started_at IS NULL", job.ID).
			Update("started_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 两个 worker 竞争同一行，输家视作无任务
			return gorm.ErrRecordNotFound
		}
		ts := now
		job.StartedAt = &ts
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) ReapStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.NotificationJob{}).
		Where("started_at IS NOT NULL AND started_at < ?", before).
		Update("started_at", nil)
	return res.RowsAffected, res.Error
}

func (r *jobRepository) ExpireOlderThan(ctx context.Context, before time.Time) ([]model.NotificationJob, error) {
	var expired []model.NotificationJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("created_at < ?", before).Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]string, len(expired))
		for i, j := range expired {
			ids[i] = j.ID
		}
		return tx.Where("id IN ?", ids).Delete(&model.NotificationJob{}).Error
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *jobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.NotificationJob{}).Error
}

func (r *jobRepository) CountPending(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.NotificationJob{}).
		Where("started_at IS NULL").Count(&cnt).Error
	return cnt, err
}

func (r *jobRepository) CountClaimed(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.NotificationJob{}).
		Where("started_at IS NOT NULL").Count(&cnt).Error
	return cnt, err
}
