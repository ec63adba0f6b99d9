package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/course-forum/config"
	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
	"github.com/d60-Lab/course-forum/internal/service"
	"github.com/d60-Lab/course-forum/pkg/database"
	"github.com/d60-Lab/course-forum/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 通知管道压测：N 个已验证参与者的课程里连发 MSGS 条消息，
// 测 schedule -> 处理完成 的延迟分布与总吞吐
func main() {
	cfg := must(config.Load())
	_ = logger.Init("dev")
	db := must(database.InitDB(cfg))
	must(struct{}{}, database.Migrate(db))

	N := 2000
	MSGS := 50
	if s := os.Getenv("N"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			N = v
		}
	}
	if s := os.Getenv("MSGS"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			MSGS = v
		}
	}

	ctx := context.Background()
	now := time.Now()

	// seed: 一门课 + N 个 instant 偏好的参与者 + 一个 everyone 会话
	course := model.Course{ID: uuid.NewString(), Name: "bench course"}
	must(struct{}{}, db.Create(&course).Error)
	users := make([]model.User, N)
	parts := make([]model.CourseParticipant, N)
	for i := 0; i < N; i++ {
		uid := uuid.NewString()
		ts := now
		users[i] = model.User{ID: uid, Name: fmt.Sprintf("u%05d", i), Email: fmt.Sprintf("u%05d@example.com", i), EmailVerifiedAt: &ts}
		parts[i] = model.CourseParticipant{ID: uuid.NewString(), CourseID: course.ID, UserID: uid, Role: model.RoleStudent, NotifyAllMessages: model.NotifyAllInstant}
	}
	must(struct{}{}, db.CreateInBatches(&users, 1000).Error)
	must(struct{}{}, db.CreateInBatches(&parts, 1000).Error)

	conv := model.Conversation{ID: uuid.NewString(), CourseID: course.ID, Kind: model.ConversationQuestion, ParticipantsScope: model.ScopeEveryone, Title: "bench"}
	must(struct{}{}, db.Create(&conv).Error)

	jobRepo := repository.NewJobRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	scheduler := service.NewNotificationScheduler(jobRepo, ledgerRepo)
	worker := service.NewNotificationWorker(jobRepo, ledgerRepo, messageRepo, participantRepo, nil, service.WorkerOptions{
		SendInterval: 0, // 压测不限流
		JobPauseMax:  time.Millisecond,
	})

	author := parts[0]
	for i := 0; i < MSGS; i++ {
		msg := model.Message{
			ID: uuid.NewString(), ConversationID: conv.ID, Reference: int64(i + 1),
			AuthorParticipantID: &author.ID, Kind: model.MessageKindMessage,
			ContentHTML: "<p>bench</p>", ContentText: "bench",
		}
		must(struct{}{}, db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
			return scheduler.Schedule(ctx, tx, msg.ID)
		}))
	}

	start := time.Now()
	worker.RunCycle(ctx)
	total := time.Since(start)

	lat := make([]time.Duration, 0, MSGS)
drain:
	for {
		select {
		case d := <-worker.Metrics():
			lat = append(lat, d)
		default:
			break drain
		}
	}

	var queued int64
	db.Model(&model.EmailQueueEntry{}).Count(&queued)
	var sum time.Duration
	for _, d := range lat {
		sum += d
	}
	avg := time.Duration(0)
	if len(lat) > 0 {
		avg = sum / time.Duration(len(lat))
	}

	fmt.Printf("N=%d MSGS=%d\n", N, MSGS)
	fmt.Printf("drained in %v, emails queued: %d\n", total, queued)
	fmt.Printf("job latency: avg=%v p95=%v p99=%v\n", avg, pct(lat, 0.95), pct(lat, 0.99))
}
