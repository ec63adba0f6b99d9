package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
	"github.com/d60-Lab/course-forum/pkg/logger"
)

// NotifiableLister 花名册来源；*cache.RosterCache 与 ParticipantRepository 均满足
type NotifiableLister interface {
	ListNotifiable(ctx context.Context, courseID string) ([]repository.NotifiableParticipant, error)
}

// WorkerOptions 派发循环的时间参数；零值取默认
type WorkerOptions struct {
	// CycleInterval 两轮之间的基础休眠，另加 [0, CycleJitter) 抖动
	CycleInterval time.Duration
	CycleJitter   time.Duration
	// ClaimTimeout 租约超时，超过即视为持有进程崩溃
	ClaimTimeout time.Duration
	// MaxJobAge 任务最大存活时间，超过整体丢弃（有意的 at-most-once 截断）
	MaxJobAge time.Duration
	// SendInterval 相邻外发入队的最小间隔，避免打满发送链路
	SendInterval time.Duration
	// JobPauseMax 相邻两个任务之间的随机停顿上限
	JobPauseMax time.Duration
}

func (o *WorkerOptions) withDefaults() {
	if o.CycleInterval <= 0 {
		o.CycleInterval = 2 * time.Minute
	}
	if o.CycleJitter < 0 {
		o.CycleJitter = 0
	}
	if o.ClaimTimeout <= 0 {
		o.ClaimTimeout = 2 * time.Minute
	}
	if o.MaxJobAge <= 0 {
		o.MaxJobAge = 20 * time.Minute
	}
	if o.JobPauseMax <= 0 {
		o.JobPauseMax = 300 * time.Millisecond
	}
}

// NotificationWorker 通知派发循环。
// 进程内单例（Start 幂等），进程间靠 Job Store 的原子认领互斥；
// 任意一步失败都不会删任务，租约超时后由下一轮回收重试（at-least-once），
// 台账的 (message, participant) 去重把重复处理压成至多一封邮件
type NotificationWorker struct {
	jobs         repository.JobRepository
	ledger       repository.LedgerRepository
	messages     repository.MessageRepository
	participants repository.ParticipantRepository
	roster       NotifiableLister
	opts         WorkerOptions
	limiter      *rate.Limiter

	running   atomic.Bool
	metricsCh chan time.Duration // 任务创建 -> 处理完成 延迟
}

func NewNotificationWorker(
	jobs repository.JobRepository,
	ledger repository.LedgerRepository,
	messages repository.MessageRepository,
	participants repository.ParticipantRepository,
	roster NotifiableLister,
	opts WorkerOptions,
) *NotificationWorker {
	opts.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.SendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.SendInterval), 1)
	}
	if roster == nil {
		roster = participants
	}
	return &NotificationWorker{
		jobs:         jobs,
		ledger:       ledger,
		messages:     messages,
		participants: participants,
		roster:       roster,
		opts:         opts,
		limiter:      limiter,
		metricsCh:    make(chan time.Duration, 65536),
	}
}

// Metrics 返回只读延迟通道（每处理完一个任务发送一次）
func (w *NotificationWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动循环；重复调用只生效一次，返回停止函数
func (w *NotificationWorker) Start() func(context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return func(context.Context) error { return nil }
	}
	stop := make(chan struct{})
	go w.loop(stop)
	return func(ctx context.Context) error {
		close(stop)
		w.running.Store(false)
		return nil
	}
}

func (w *NotificationWorker) loop(stop <-chan struct{}) {
	for {
		w.RunCycle(context.Background())
		sleep := w.opts.CycleInterval
		if w.opts.CycleJitter > 0 {
			sleep += time.Duration(rand.Int63n(int64(w.opts.CycleJitter)))
		}
		select {
		case <-stop:
			return
		case <-time.After(sleep):
		}
	}
}

// RunCycle 跑一整轮：过期清理 → 租约回收 → 认领处理直到队列排空。
// 导出供 worker 进程、测试与压测复用
func (w *NotificationWorker) RunCycle(ctx context.Context) {
	now := time.Now()
	logger.Debug("notification cycle start")

	expired, err := w.jobs.ExpireOlderThan(ctx, now.Add(-w.opts.MaxJobAge))
	if err != nil {
		logger.Error("expire old jobs", zap.Error(err))
	}
	for _, j := range expired {
		// 有意的静默丢弃：超龄任务不再可行动，只留日志
		logger.Warn("notification job expired without delivery",
			zap.String("job_id", j.ID),
			zap.String("message_id", j.MessageID),
			zap.Time("created_at", j.CreatedAt))
	}

	reaped, err := w.jobs.ReapStale(ctx, now.Add(-w.opts.ClaimTimeout))
	if err != nil {
		logger.Error("reap stale leases", zap.Error(err))
	}
	if reaped > 0 {
		// 正常的崩溃恢复路径，不是错误
		logger.Info("reclaimed abandoned notification jobs", zap.Int64("count", reaped))
	}

	for {
		job, err := w.jobs.ClaimNext(ctx, time.Now())
		if err != nil {
			logger.Error("claim notification job", zap.Error(err))
			return
		}
		if job == nil {
			return
		}

		if err := w.processJob(ctx, job); err != nil {
			// 任务保持已租约状态，等租约超时后重试；毒任务最终被超龄清理兜住
			logger.Warn("notification job failed, retry after lease timeout",
				zap.String("job_id", job.ID),
				zap.String("message_id", job.MessageID),
				zap.Error(err))
			sentry.CaptureException(err)
			continue
		}

		if err := w.jobs.Delete(ctx, job.ID); err != nil {
			logger.Error("delete processed job",
				zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		select {
		case w.metricsCh <- time.Since(job.CreatedAt):
		default:
		}

		// 任务之间短暂随机停顿，避免压垮发送链路
		if w.opts.JobPauseMax > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(w.opts.JobPauseMax))))
		}
	}
}

// processJob 处理一个已认领任务：快照 → 解析 → 逐收件人落台账+外发。
// panic 也折算成 error，绝不能带崩整个循环
func (w *NotificationWorker) processJob(ctx context.Context, job *model.NotificationJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("process job %s: panic: %v", job.ID, r)
		}
	}()

	snap, err := w.messages.SnapshotForNotification(ctx, job.MessageID)
	if err != nil {
		return fmt.Errorf("process job %s: %w", job.ID, err)
	}

	candidates, err := w.roster.ListNotifiable(ctx, snap.Course.ID)
	if err != nil {
		return fmt.Errorf("process job %s: list roster: %w", job.ID, err)
	}
	authorIDs, err := w.participants.ListConversationAuthorIDs(ctx, snap.Conversation.ID)
	if err != nil {
		return fmt.Errorf("process job %s: list conversation authors: %w", job.ID, err)
	}
	starterID, err := w.participants.ConversationStarterID(ctx, snap.Conversation.ID)
	if err != nil {
		return fmt.Errorf("process job %s: conversation starter: %w", job.ID, err)
	}
	notified, err := w.ledger.ListNotified(ctx, job.MessageID)
	if err != nil {
		return fmt.Errorf("process job %s: list notified: %w", job.ID, err)
	}

	recipients := ResolveRecipients(ResolveInput{
		Message:                snap.Message,
		Conversation:           snap.Conversation,
		Candidates:             candidates,
		SelectedParticipantIDs: snap.SelectedParticipantIDs,
		Mentions:               snap.Mentions,
		ConversationAuthorIDs:  authorIDs,
		StarterParticipantID:   starterID,
		AlreadyNotified:        notified,
	})

	content, err := ComposeMessageEmail(snap)
	if err != nil {
		return fmt.Errorf("process job %s: %w", job.ID, err)
	}

	for _, rcpt := range recipients {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("process job %s: %w", job.ID, err)
		}
		now := time.Now()
		entry := &model.DeliveryLedgerEntry{
			ID:            uuid.New().String(),
			MessageID:     job.MessageID,
			ParticipantID: rcpt.ParticipantID,
			CreatedAt:     now,
		}
		email := &model.EmailQueueEntry{
			ID:               uuid.New().String(),
			RecipientAddress: rcpt.Email,
			Subject:          content.Subject,
			BodyHTML:         content.BodyHTML,
			CreatedAt:        now,
			StartAt:          now,
		}
		// 半途失败时已写入的收件人留在台账里，重试轮会自动跳过他们
		if err := w.ledger.RecordDelivery(ctx, entry, email); err != nil {
			return fmt.Errorf("process job %s: record delivery for %s: %w", job.ID, rcpt.ParticipantID, err)
		}
	}

	logger.Info("notification job processed",
		zap.String("job_id", job.ID),
		zap.String("message_id", job.MessageID),
		zap.Int("recipients", len(recipients)))
	return nil
}
