package model

import "time"

// NotificationJob 一条消息的通知派发任务。
// 同一消息最多只保留一个未认领任务（由 Schedule 的合并逻辑保证）；
// StartedAt 为空表示未认领，非空即为租约时间戳
type NotificationJob struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	MessageID string    `gorm:"type:varchar(36);index:idx_job_message;not null"`
	CreatedAt time.Time `gorm:"index"`
	StartAt   time.Time `gorm:"index:idx_job_start"`
	StartedAt *time.Time
}

func (NotificationJob) TableName() string { return "notification_jobs" }
