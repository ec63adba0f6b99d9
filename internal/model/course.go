package model

import "time"

// Course 课程（课程子系统所有，本核心只读）
type Course struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(255);not null"`
	Year      string `gorm:"type:varchar(16)"`
	Term      string `gorm:"type:varchar(16)"`
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Course) TableName() string { return "courses" }
