package model

import "time"

// 课程内角色
const (
	RoleStudent     = "student"
	RoleCourseStaff = "course-staff"
)

// notify_all_messages 取值；hourly/daily 目前按 instant 派发（见 worker）
const (
	NotifyAllOff          = "off"
	NotifyAllInstant      = "instant"
	NotifyAllHourlyDigest = "hourly-digest"
	NotifyAllDailyDigest  = "daily-digest"
)

// CourseParticipant 用户在某门课程内的身份与通知偏好
type CourseParticipant struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	CourseID string `gorm:"type:varchar(36);index:idx_participant_course;uniqueIndex:ux_participant_course_user;not null"`
	UserID   string `gorm:"type:varchar(36);uniqueIndex:ux_participant_course_user;not null"`
	// 复合唯一键，一个用户在一门课内只有一个身份
	// ux_participant_course_user = (course_id, user_id)
	Role string `gorm:"type:varchar(16);not null"`

	NotifyAllMessages                   string `gorm:"type:varchar(16);not null;default:instant"`
	NotifyOnMention                     bool   `gorm:"not null;default:true"`
	NotifyOnConversationsParticipatedIn bool   `gorm:"not null;default:true"`
	NotifyOnConversationsStarted        bool   `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CourseParticipant) TableName() string { return "course_participants" }
