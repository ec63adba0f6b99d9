package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
)

// NotificationScheduler 入队 API：消息创建/编辑处理器在写消息的同一事务内调用，
// 保证通知只会对已持久化的内容发出
type NotificationScheduler struct {
	jobs   repository.JobRepository
	ledger repository.LedgerRepository
}

func NewNotificationScheduler(jobs repository.JobRepository, ledger repository.LedgerRepository) *NotificationScheduler {
	return &NotificationScheduler{jobs: jobs, ledger: ledger}
}

// Schedule 为一条消息登记（或刷新）一次通知派发。
// 同时为作者写入台账占位，作者永远不会收到自己消息的通知；
// 重复调用安全：编辑合并进既有任务，作者台账幂等
func (s *NotificationScheduler) Schedule(ctx context.Context, tx *gorm.DB, messageID string) error {
	var msg model.Message
	if err := tx.WithContext(ctx).Select("id", "author_participant_id").
		First(&msg, "id = ?", messageID).Error; err != nil {
		return fmt.Errorf("schedule notification: load message %s: %w", messageID, err)
	}

	if msg.AuthorParticipantID != nil {
		if err := s.ledger.InsertAuthorEntry(ctx, tx, messageID, *msg.AuthorParticipantID); err != nil {
			return fmt.Errorf("schedule notification: author ledger entry: %w", err)
		}
	}

	if err := s.jobs.Schedule(ctx, tx, messageID, time.Now()); err != nil {
		return fmt.Errorf("schedule notification: %w", err)
	}
	return nil
}
