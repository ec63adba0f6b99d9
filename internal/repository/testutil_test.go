package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/course-forum/internal/model"
)

func setupTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// 内存库只允许单连接，避免连接池切到空库
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Course{},
		&model.User{},
		&model.CourseParticipant{},
		&model.Conversation{},
		&model.ConversationSelectedParticipant{},
		&model.Message{},
		&model.MessageMentionTarget{},
		&model.NotificationJob{},
		&model.DeliveryLedgerEntry{},
		&model.EmailQueueEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
