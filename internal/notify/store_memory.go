package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hometrust/pkg/platform/sentinel"
)

// Store is the outbox persistence. Enqueue joins the caller's transaction;
// the dispatcher drives the Fetch/Mark cycle.
type Store interface {
	Enqueue(ctx context.Context, notification *Notification) error
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error)
	MarkSent(ctx context.Context, notificationID uuid.UUID, now time.Time) error
	MarkFailed(ctx context.Context, notificationID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string, now time.Time) error
	MarkDead(ctx context.Context, notificationID uuid.UUID, lastError string, now time.Time) error
}

// InMemory is a mutex-guarded outbox.
type InMemory struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*Notification
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[uuid.UUID]*Notification)}
}

func (s *InMemory) Enqueue(_ context.Context, notification *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *notification
	s.rows[notification.ID] = &copied
	return nil
}

func (s *InMemory) FetchDue(_ context.Context, now time.Time, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Notification
	for _, row := range s.rows {
		if row.Status != StatusPending || row.NextAttemptAt.After(now) {
			continue
		}
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) MarkSent(_ context.Context, notificationID uuid.UUID, now time.Time) error {
	return s.mark(notificationID, func(n *Notification) {
		n.Status = StatusSent
		n.UpdatedAt = now
	})
}

func (s *InMemory) MarkFailed(_ context.Context, notificationID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string, now time.Time) error {
	return s.mark(notificationID, func(n *Notification) {
		n.Attempts = attempts
		n.NextAttemptAt = nextAttemptAt
		n.LastError = lastError
		n.UpdatedAt = now
	})
}

func (s *InMemory) MarkDead(_ context.Context, notificationID uuid.UUID, lastError string, now time.Time) error {
	return s.mark(notificationID, func(n *Notification) {
		n.Status = StatusDead
		n.LastError = lastError
		n.UpdatedAt = now
	})
}

func (s *InMemory) mark(notificationID uuid.UUID, mutate func(*Notification)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	mutate(row)
	return nil
}

// All returns every outbox row. Test helper.
func (s *InMemory) All() []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Notification, 0, len(s.rows))
	for _, row := range s.rows {
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
