package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
	txcontext "hometrust/pkg/platform/tx"
)

// Postgres persists the outbox in the notification_outbox table. FetchDue
// skips rows locked by a concurrent dispatcher so multiple replicas never
// double-send a row in the same poll cycle.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Enqueue(ctx context.Context, notification *Notification) error {
	payload, err := marshalPayload(notification.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notification_outbox
			(id, account_id, template, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		notification.ID,
		uuid.UUID(notification.AccountID),
		string(notification.Template),
		payload,
		string(notification.Status),
		notification.Attempts,
		notification.NextAttemptAt,
		nullIfEmpty(notification.LastError),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Postgres) FetchDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error) {
	query := `
		SELECT id, account_id, template, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at
		FROM notification_outbox
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due notifications: %w", err)
	}
	return out, nil
}

func (s *Postgres) MarkSent(ctx context.Context, notificationID uuid.UUID, now time.Time) error {
	return s.exec(ctx,
		`UPDATE notification_outbox SET status = 'sent', updated_at = $2 WHERE id = $1`,
		notificationID, now)
}

func (s *Postgres) MarkFailed(ctx context.Context, notificationID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string, now time.Time) error {
	return s.exec(ctx,
		`UPDATE notification_outbox SET attempts = $2, next_attempt_at = $3, last_error = $4, updated_at = $5 WHERE id = $1`,
		notificationID, attempts, nextAttemptAt, nullIfEmpty(lastError), now)
}

func (s *Postgres) MarkDead(ctx context.Context, notificationID uuid.UUID, lastError string, now time.Time) error {
	return s.exec(ctx,
		`UPDATE notification_outbox SET status = 'dead', last_error = $2, updated_at = $3 WHERE id = $1`,
		notificationID, nullIfEmpty(lastError), now)
}

func (s *Postgres) exec(ctx context.Context, query string, args ...any) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notification affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var (
		notification Notification
		accountUUID  uuid.UUID
		template     string
		payload      []byte
		status       string
		lastError    sql.NullString
	)
	err := row.Scan(
		&notification.ID,
		&accountUUID,
		&template,
		&payload,
		&status,
		&notification.Attempts,
		&notification.NextAttemptAt,
		&lastError,
		&notification.CreatedAt,
		&notification.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	notification.AccountID = id.AccountID(accountUUID)
	notification.Template = TemplateKind(template)
	notification.Status = Status(status)
	notification.LastError = lastError.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &notification.Payload); err != nil {
			return nil, fmt.Errorf("decode notification payload: %w", err)
		}
	}
	return &notification, nil
}

func marshalPayload(payload map[string]string) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}
	return data, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
