package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"orgchat/internal/models"
	"orgchat/internal/repositories"
)

// PushChannel delivers a persisted notification outside the app (email, Telegram).
type PushChannel interface {
	Name() string
	Push(ctx context.Context, user *models.User, n *models.Notification) error
}

type PushJob struct {
	Notification *models.Notification
	Preference   *models.NotificationPreference
}

// PushDispatcher fans offline pushes out to a fixed pool of workers.
// Jobs are dropped when the queue is full.
type PushDispatcher struct {
	users    repositories.UserRepository
	channels []PushChannel
	jobs     chan PushJob
	timeout  time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPushDispatcher(users repositories.UserRepository, workers, buffer int, log *zap.Logger, channels ...PushChannel) *PushDispatcher {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &PushDispatcher{
		users:    users,
		channels: channels,
		jobs:     make(chan PushJob, buffer),
		timeout:  15 * time.Second,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue reports whether the job was accepted.
func (d *PushDispatcher) Enqueue(job PushJob) bool {
	if len(d.channels) == 0 {
		return false
	}
	select {
	case <-d.ctx.Done():
		return false
	default:
	}
	select {
	case d.jobs <- job:
		return true
	default:
		d.log.Warn("[push] queue full, dropping", zap.String("notification_id", job.Notification.ID))
		return false
	}
}

func (d *PushDispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobs:
			d.deliver(job)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *PushDispatcher) deliver(job PushJob) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	n := job.Notification
	user, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		d.log.Warn("[push] recipient lookup failed", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	for _, ch := range d.channels {
		if !job.Preference.Allows(n.Type, ch.Name()) {
			continue
		}
		if err := ch.Push(ctx, user, n); err != nil {
			d.log.Warn("[push] delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("user_id", n.UserID),
				zap.Error(err))
		}
	}
}

func (d *PushDispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
}
