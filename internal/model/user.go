package model

import "time"

// User 平台用户；EmailVerifiedAt 为空的用户不会收到任何通知邮件
type User struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Name            string `gorm:"type:varchar(255);not null"`
	Email           string `gorm:"type:varchar(255);uniqueIndex;not null"`
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (User) TableName() string { return "users" }
