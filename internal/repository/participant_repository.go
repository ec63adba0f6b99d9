package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/course-forum/internal/model"
)

// NotifiableParticipant 一个可收通知的候选人：身份、角色、偏好与已验证邮箱
type NotifiableParticipant struct {
	ID                                  string `json:"id"`
	Role                                string `json:"role"`
	Email                               string `json:"email"`
	NotifyAllMessages                   string `json:"notify_all_messages"`
	NotifyOnMention                     bool   `json:"notify_on_mention"`
	NotifyOnConversationsParticipatedIn bool   `json:"notify_on_conversations_participated_in"`
	NotifyOnConversationsStarted        bool   `json:"notify_on_conversations_started"`
}

// ParticipantRepository 课程参与者读模型仓储（只读）
type ParticipantRepository interface {
	// ListNotifiable 返回课程内所有邮箱已验证的参与者（通知候选池）
	ListNotifiable(ctx context.Context, courseID string) ([]NotifiableParticipant, error)

	// ListConversationAuthorIDs 返回在该会话内发过言的参与者 ID（去重，不含已退课作者）
	ListConversationAuthorIDs(ctx context.Context, conversationID string) ([]string, error)

	// ConversationStarterID 返回开场消息（reference = 1）的作者 ID；作者已退课返回空串
	ConversationStarterID(ctx context.Context, conversationID string) (string, error)
}

type participantRepository struct{ db *gorm.DB }

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) ListNotifiable(ctx context.Context, courseID string) ([]NotifiableParticipant, error) {
	var rows []NotifiableParticipant
	err := r.db.WithContext(ctx).Table("course_participants").
		Select(
			"course_participants.id",
			"course_participants.role",
			"users.email",
			"course_participants.notify_all_messages",
			"course_participants.notify_on_mention",
			"course_participants.notify_on_conversations_participated_in",
			"course_participants.notify_on_conversations_started",
		).
		Joins("JOIN users ON users.id = course_participants.user_id").
		Where("course_participants.course_id = ? AND users.email_verified_at IS NOT NULL", courseID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *participantRepository) ListConversationAuthorIDs(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Distinct("author_participant_id").
		Where("conversation_id = ? AND author_participant_id IS NOT NULL", conversationID).
		Pluck("author_participant_id", &ids).Error
	return ids, err
}

func (r *participantRepository) ConversationStarterID(ctx context.Context, conversationID string) (string, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Select("author_participant_id").
		Where("conversation_id = ? AND reference = 1", conversationID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if msg.AuthorParticipantID == nil {
		return "", nil
	}
	return *msg.AuthorParticipantID, nil
}
