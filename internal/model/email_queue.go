package model

import "time"

// EmailQueueEntry 外发邮件队列的一行，由下游发送 worker 消费。
// 本核心只负责写入，且保证写入时 StartAt <= now；
// StartAt 字段为将来的 digest 合并预留
type EmailQueueEntry struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	RecipientAddress string `gorm:"type:varchar(255);not null"`
	Subject          string `gorm:"type:varchar(998);not null"`
	BodyHTML         string `gorm:"type:text;not null"`
	CreatedAt        time.Time
	StartAt          time.Time `gorm:"index"`
}

func (EmailQueueEntry) TableName() string { return "email_queue" }
