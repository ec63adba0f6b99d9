package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
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

// fixture 一门课 + 一个 everyone 范围的问题会话
type fixture struct {
	db     *gorm.DB
	course model.Course
	conv   model.Conversation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{db: db}
	f.course = model.Course{ID: uuid.NewString(), Name: "数据结构"}
	require.NoError(t, db.Create(&f.course).Error)
	f.conv = model.Conversation{
		ID: uuid.NewString(), CourseID: f.course.ID,
		Kind: model.ConversationQuestion, ParticipantsScope: model.ScopeEveryone,
		Title: "第一次作业答疑",
	}
	require.NoError(t, db.Create(&f.conv).Error)
	return f
}

// addParticipant 建一个邮箱已验证的参与者，mutate 可改偏好
func (f *fixture) addParticipant(t *testing.T, name, role string, mutate ...func(*model.CourseParticipant)) model.CourseParticipant {
	t.Helper()
	now := time.Now()
	u := model.User{ID: uuid.NewString(), Name: name, Email: name + "@example.com", EmailVerifiedAt: &now}
	require.NoError(t, f.db.Create(&u).Error)
	p := model.CourseParticipant{
		ID: uuid.NewString(), CourseID: f.course.ID, UserID: u.ID,
		Role: role, NotifyAllMessages: model.NotifyAllInstant,
	}
	for _, m := range mutate {
		m(&p)
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func optedOut(p *model.CourseParticipant) {
	p.NotifyAllMessages = model.NotifyAllOff
	p.NotifyOnMention = false
	p.NotifyOnConversationsParticipatedIn = false
	p.NotifyOnConversationsStarted = false
}

// addMessage reference 自动按会话内已有消息数递增
func (f *fixture) addMessage(t *testing.T, authorID *string, mutate ...func(*model.Message)) model.Message {
	t.Helper()
	var cnt int64
	require.NoError(t, f.db.Model(&model.Message{}).Where("conversation_id = ?", f.conv.ID).Count(&cnt).Error)
	m := model.Message{
		ID: uuid.NewString(), ConversationID: f.conv.ID, Reference: cnt + 1,
		AuthorParticipantID: authorID, Kind: model.MessageKindMessage,
		ContentHTML: "<p>你好</p>", ContentText: "你好",
	}
	for _, mu := range mutate {
		mu(&m)
	}
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

func (f *fixture) newWorker() *NotificationWorker {
	jobRepo := repository.NewJobRepository(f.db)
	ledgerRepo := repository.NewLedgerRepository(f.db)
	return NewNotificationWorker(
		jobRepo,
		ledgerRepo,
		repository.NewMessageRepository(f.db),
		repository.NewParticipantRepository(f.db),
		nil,
		WorkerOptions{
			ClaimTimeout: 2 * time.Minute,
			MaxJobAge:    20 * time.Minute,
			SendInterval: 0,
			JobPauseMax:  time.Nanosecond,
		},
	)
}

func (f *fixture) newScheduler() *NotificationScheduler {
	return NewNotificationScheduler(
		repository.NewJobRepository(f.db),
		repository.NewLedgerRepository(f.db),
	)
}
