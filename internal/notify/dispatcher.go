package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hometrust/internal/platform/metrics"
	txcontext "hometrust/pkg/platform/tx"
)

// Publisher is the downstream notification transport.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Message is the wire shape published per notification.
type Message struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Template  string            `json:"template"`
	Payload   map[string]string `json:"payload,omitempty"`
	Attempt   int               `json:"attempt"`
}

// Dispatcher drains the outbox in the background. Delivery is at-least-once:
// a row is retried with exponential backoff until MaxAttempts, then moved to
// the dead letter sink and marked dead. Publish failures never propagate to
// the moderation action that enqueued the row; that transaction has already
// committed.
type Dispatcher struct {
	store      Store
	publisher  Publisher
	deadLetter DeadLetter
	runner     txcontext.Runner

	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	baseBackoff  time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// DispatcherConfig tunes the polling loop.
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithDeadLetter sets the sink for exhausted notifications. Without one, dead
// rows are only marked and logged.
func WithDeadLetter(sink DeadLetter) DispatcherOption {
	return func(d *Dispatcher) { d.deadLetter = sink }
}

func NewDispatcher(store Store, publisher Publisher, runner txcontext.Runner, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:        store,
		publisher:    publisher,
		runner:       runner,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		baseBackoff:  cfg.BaseBackoff,
		logger:       slog.Default(),
	}
	if d.pollInterval <= 0 {
		d.pollInterval = 2 * time.Second
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 3
	}
	if d.baseBackoff <= 0 {
		d.baseBackoff = 5 * time.Second
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.DispatchDue(ctx, time.Now()); err != nil {
				d.logger.ErrorContext(ctx, "outbox dispatch cycle failed", "error", err)
			}
		}
	}
}

// DispatchDue processes one batch of due notifications. The fetch and the
// subsequent marks share a transaction so a concurrent dispatcher replica
// skips rows this one is working on.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) error {
	return d.runner.RunInTx(ctx, func(ctx context.Context) error {
		due, err := d.store.FetchDue(ctx, now, d.batchSize)
		if err != nil {
			return err
		}
		for _, notification := range due {
			d.dispatchOne(ctx, notification, now)
		}
		return nil
	})
}

func (d *Dispatcher) dispatchOne(ctx context.Context, notification *Notification, now time.Time) {
	attempt := notification.Attempts + 1
	payload, err := json.Marshal(Message{
		ID:        notification.ID.String(),
		AccountID: notification.AccountID.String(),
		Template:  string(notification.Template),
		Payload:   notification.Payload,
		Attempt:   attempt,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "notification marshal failed",
			"notification_id", notification.ID.String(), "error", err)
		return
	}

	if err := d.publisher.Publish(ctx, notification.AccountID.String(), payload); err != nil {
		d.handleFailure(ctx, notification, attempt, payload, err, now)
		return
	}

	if err := d.store.MarkSent(ctx, notification.ID, now); err != nil {
		d.logger.ErrorContext(ctx, "notification mark sent failed",
			"notification_id", notification.ID.String(), "error", err)
		return
	}
	d.metrics.IncNotificationDispatched()
}

func (d *Dispatcher) handleFailure(ctx context.Context, notification *Notification, attempt int, payload []byte, publishErr error, now time.Time) {
	if attempt < d.maxAttempts {
		next := now.Add(d.backoff(attempt))
		if err := d.store.MarkFailed(ctx, notification.ID, attempt, next, publishErr.Error(), now); err != nil {
			d.logger.ErrorContext(ctx, "notification mark failed errored",
				"notification_id", notification.ID.String(), "error", err)
			return
		}
		d.logger.WarnContext(ctx, "notification publish failed, will retry",
			"notification_id", notification.ID.String(),
			"attempt", attempt,
			"next_attempt_at", next,
			"error", publishErr,
		)
		return
	}

	if d.deadLetter != nil {
		if err := d.deadLetter.Push(ctx, payload); err != nil {
			// Leave the row pending; the next cycle retries both the
			// publish and the dead letter push.
			d.logger.ErrorContext(ctx, "dead letter push failed",
				"notification_id", notification.ID.String(), "error", err)
			return
		}
	}
	if err := d.store.MarkDead(ctx, notification.ID, publishErr.Error(), now); err != nil {
		d.logger.ErrorContext(ctx, "notification mark dead failed",
			"notification_id", notification.ID.String(), "error", err)
		return
	}
	d.metrics.IncNotificationDeadLettered()
	d.logger.ErrorContext(ctx, "notification dead lettered",
		"notification_id", notification.ID.String(),
		"attempts", attempt,
		"error", publishErr,
	)
}

// backoff doubles per attempt: base, 2*base, 4*base.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	backoff := d.baseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}
