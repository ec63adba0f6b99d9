package model

import "time"

// 会话类型
const (
	ConversationQuestion = "question"
	ConversationNote     = "note"
	ConversationChat     = "chat"
)

// 会话可见范围
const (
	ScopeEveryone               = "everyone"
	ScopeCourseStaffAndSelected = "course-staff-and-selected"
	ScopeSelectedOnly           = "selected-only"
)

// Conversation 课程内的一个讨论串（课程子系统所有，本核心只读）
type Conversation struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	CourseID string `gorm:"type:varchar(36);index:idx_conversation_course;not null"`
	Kind     string `gorm:"type:varchar(16);not null"`
	// ParticipantsScope 可见范围：everyone / course-staff-and-selected / selected-only
	ParticipantsScope string `gorm:"type:varchar(32);not null;default:everyone"`
	// AnnouncementAt 非空表示该会话是公告
	AnnouncementAt *time.Time
	Title          string `gorm:"type:varchar(512);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Conversation) TableName() string { return "conversations" }

// ConversationSelectedParticipant 受限可见会话的入选名单
type ConversationSelectedParticipant struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string `gorm:"type:varchar(36);index:idx_selected_conversation;uniqueIndex:ux_selected_conversation_participant;not null"`
	ParticipantID  string `gorm:"type:varchar(36);uniqueIndex:ux_selected_conversation_participant;not null"`
	// 复合唯一键，避免重复入选
	// ux_selected_conversation_participant = (conversation_id, participant_id)
	CreatedAt time.Time
}

func (ConversationSelectedParticipant) TableName() string { return "conversation_selected_participants" }
