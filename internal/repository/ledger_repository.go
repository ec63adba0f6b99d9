package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/course-forum/internal/model"
)

// LedgerRepository 派发台账仓储
type LedgerRepository interface {
	// ListNotified 返回某消息已经产生过通知的参与者 ID 集合
	ListNotified(ctx context.Context, messageID string) ([]string, error)

	// RecordDelivery 单事务写入一条外发邮件与一条台账；
	// 台账唯一键冲突会让整个事务失败上抛，宁可报错也不重复发信
	RecordDelivery(ctx context.Context, entry *model.DeliveryLedgerEntry, email *model.EmailQueueEntry) error

	// InsertAuthorEntry 在调用方事务内为作者补一条台账（作者不给自己发通知）；幂等
	InsertAuthorEntry(ctx context.Context, tx *gorm.DB, messageID, participantID string) error

	// CountEmailQueued 外发队列深度观测
	CountEmailQueued(ctx context.Context) (int64, error)
}

type ledgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepository{db: db} }

func (r *ledgerRepository) ListNotified(ctx context.Context, messageID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.DeliveryLedgerEntry{}).
		Where("message_id = ?", messageID).
		Pluck("participant_id", &ids).Error
	return ids, err
}

func (r *ledgerRepository) RecordDelivery(ctx context.Context, entry *model.DeliveryLedgerEntry, email *model.EmailQueueEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(email).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *ledgerRepository) InsertAuthorEntry(ctx context.Context, tx *gorm.DB, messageID, participantID string) error {
	entry := &model.DeliveryLedgerEntry{
		ID:            uuid.New().String(),
		MessageID:     messageID,
		ParticipantID: participantID,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
}

func (r *ledgerRepository) CountEmailQueued(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.EmailQueueEntry{}).Count(&cnt).Error
	return cnt, err
}
