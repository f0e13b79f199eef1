package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/metrics"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

const (
	defaultBuffer         = 256
	defaultDeliverTimeout = 5 * time.Second
)

// Forwarder hands a stored notification to an external delivery channel.
type Forwarder interface {
	Forward(ctx context.Context, n domain.Notification) error
}

// Dispatcher records notifications off the request path. Emit never blocks
// and never fails; the worker started by Run persists and forwards.
type Dispatcher struct {
	repo      repository.NotificationRepository
	forwarder Forwarder
	queue     chan domain.Notification
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	timeout   time.Duration
	once      sync.Once
}

// NewDispatcher constructs a Dispatcher. forwarder may be nil.
func NewDispatcher(repo repository.NotificationRepository, forwarder Forwarder, logger *slog.Logger, m *metrics.Metrics, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:      repo,
		forwarder: forwarder,
		queue:     make(chan domain.Notification, buffer),
		logger:    logger.With("component", "notify_dispatcher"),
		metrics:   m,
		now:       time.Now,
		timeout:   defaultDeliverTimeout,
	}
}

// Emit queues a notification for recipientID. A full queue drops the
// notification; the caller's transition is never affected.
func (d *Dispatcher) Emit(recipientID string, kind domain.NotificationType, message string, related *domain.RelatedRef) {
	if d == nil {
		return
	}
	if recipientID == "" {
		d.logger.Warn("notification without recipient dropped", "type", kind)
		return
	}
	n := domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        kind,
		Message:     truncate(message, domain.MaxNotificationLength),
		Related:     related,
		CreatedAt:   d.now().UTC(),
	}
	select {
	case d.queue <- n:
		d.metrics.Notification(string(kind), "queued")
	default:
		d.metrics.Notification(string(kind), "dropped")
		d.logger.Warn("notification queue full, dropping", "type", kind, "recipient_id", recipientID)
	}
}

// Run delivers queued notifications until ctx is cancelled, then drains
// what is already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.logger.Info("notification dispatcher started", "buffer", cap(d.queue), "forwarding", d.forwarder != nil)
	})
	for {
		select {
		case <-ctx.Done():
			d.drain()
			d.logger.Info("notification dispatcher stopped")
			return
		case n := <-d.queue:
			d.deliver(n)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.repo.CreateNotification(ctx, &n); err != nil {
		d.metrics.Notification(string(n.Type), "failed")
		d.logger.Error("persist notification failed", "error", err, "type", n.Type, "recipient_id", n.RecipientID)
		return
	}
	d.metrics.Notification(string(n.Type), "persisted")

	if d.forwarder == nil {
		return
	}
	if err := d.forwarder.Forward(ctx, n); err != nil {
		d.metrics.Notification(string(n.Type), "forward_failed")
		d.logger.Warn("forward notification failed", "error", err, "notification_id", n.ID)
		return
	}
	d.metrics.Notification(string(n.Type), "forwarded")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
