package model

import "time"

// 消息类型
const (
	MessageKindMessage          = "message"
	MessageKindAnswer           = "answer"
	MessageKindFollowUpQuestion = "follow-up-question"
	MessageKindStaffOnlyNote    = "staff-only-note"
)

// Message 会话内的一条消息（会话子系统所有，本核心只读）。
// 任务被认领后，解析过程基于认领时刻的快照，kind 与匿名标记视为不可变
type Message struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string `gorm:"type:varchar(36);index:idx_message_conversation;uniqueIndex:ux_message_conversation_reference;not null"`
	// Reference 会话内序号，1 为开场消息
	// ux_message_conversation_reference = (conversation_id, reference)
	Reference int64 `gorm:"uniqueIndex:ux_message_conversation_reference;not null"`
	// AuthorParticipantID 为空表示作者已退课
	AuthorParticipantID *string `gorm:"type:varchar(36);index:idx_message_author"`
	AnonymousAuthor     bool
	Kind                string `gorm:"type:varchar(32);not null;default:message"`
	ContentHTML         string `gorm:"type:text"`
	ContentText         string `gorm:"type:text"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Message) TableName() string { return "messages" }

// 提及目标类型（内容预处理子系统写入，本核心只读）
const (
	MentionEveryone    = "everyone"
	MentionCourseStaff = "course-staff"
	MentionStudents    = "students"
	MentionParticipant = "participant"
)

// MessageMentionTarget 一条消息的一个提及目标；粗粒度目标与个人目标用 kind 区分，
// 只有 kind = participant 时 ParticipantID 非空
type MessageMentionTarget struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	MessageID     string  `gorm:"type:varchar(36);index:idx_mention_message;not null"`
	Kind          string  `gorm:"type:varchar(16);not null"`
	ParticipantID *string `gorm:"type:varchar(36)"`
	CreatedAt     time.Time
}

func (MessageMentionTarget) TableName() string { return "message_mention_targets" }
