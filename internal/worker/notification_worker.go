package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/events"
)

const defaultNotificationBuffer = 256

// Notifier delivers the notifications for one case event.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// NotificationWorker moves case notifications off the request path. The
// dispatcher only enqueues; a single goroutine drains the queue in order.
// Events arriving while the queue is full are dropped with a warning.
type NotificationWorker struct {
	notifier Notifier
	logger   *zap.Logger
	queue    chan events.Event

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewNotificationWorker creates a worker with room for buffer pending events.
func NewNotificationWorker(notifier Notifier, logger *zap.Logger, buffer int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = defaultNotificationBuffer
	}
	return &NotificationWorker{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan events.Event, buffer),
		done:     make(chan struct{}),
	}
}

// Subscribe routes every case event type through the queue.
func (w *NotificationWorker) Subscribe(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventCaseCreated,
		events.EventCaseUpdated,
		events.EventCaseDeleted,
		events.EventCaseSLAExpired,
	} {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.logger.Warn("notification dropped after shutdown", zap.String("case_id", event.CaseID), zap.String("event_type", string(event.Type)))
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event", zap.String("case_id", event.CaseID), zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Start launches the delivery loop. Calling it twice is a no-op.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)
	for event := range w.queue {
		w.deliver(ctx, event)
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notifier panicked", zap.String("case_id", event.CaseID), zap.Any("panic", r))
		}
	}()
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("case_id", event.CaseID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

// Stop closes the queue and waits for queued events to drain, or for ctx to
// expire, in which case in-flight delivery is cancelled.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-w.done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		return ctx.Err()
	}
}
