package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/course-forum/internal/model"
)

// MessageSnapshot 认领任务时一次性加载的消息上下文；
// 解析器只看这份快照，处理期间的消息变更不会影响本轮派发
type MessageSnapshot struct {
	Message                model.Message
	Conversation           model.Conversation
	Course                 model.Course
	SelectedParticipantIDs []string
	Mentions               []model.MessageMentionTarget
	// AuthorName 作者显示名；作者已退课时为空
	AuthorName *string
}

// MessageRepository 消息读模型仓储（只读）
type MessageRepository interface {
	SnapshotForNotification(ctx context.Context, messageID string) (*MessageSnapshot, error)
}

type messageRepository struct{ db *gorm.DB }

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) SnapshotForNotification(ctx context.Context, messageID string) (*MessageSnapshot, error) {
	var snap MessageSnapshot

	if err := r.db.WithContext(ctx).First(&snap.Message, "id = ?", messageID).Error; err != nil {
		return nil, fmt.Errorf("load message %s: %w", messageID, err)
	}
	if err := r.db.WithContext(ctx).First(&snap.Conversation, "id = ?", snap.Message.ConversationID).Error; err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", snap.Message.ConversationID, err)
	}
	if err := r.db.WithContext(ctx).First(&snap.Course, "id = ?", snap.Conversation.CourseID).Error; err != nil {
		return nil, fmt.Errorf("load course %s: %w", snap.Conversation.CourseID, err)
	}

	if err := r.db.WithContext(ctx).Model(&model.ConversationSelectedParticipant{}).
		Where("conversation_id = ?", snap.Conversation.ID).
		Pluck("participant_id", &snap.SelectedParticipantIDs).Error; err != nil {
		return nil, fmt.Errorf("load selected participants: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Find(&snap.Mentions).Error; err != nil {
		return nil, fmt.Errorf("load mention targets: %w", err)
	}

	if snap.Message.AuthorParticipantID != nil {
		var name string
		err := r.db.WithContext(ctx).Table("course_participants").
			Select("users.name").
			Joins("JOIN users ON users.id = course_participants.user_id").
			Where("course_participants.id = ?", *snap.Message.AuthorParticipantID).
			Scan(&name).Error
		if err != nil {
			return nil, fmt.Errorf("load author name: %w", err)
		}
		if name != "" {
			snap.AuthorName = &name
		}
	}

	return &snap, nil
}
