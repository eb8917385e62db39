package modlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "hometrust/pkg/domain"
	txcontext "hometrust/pkg/platform/tx"
)

// Postgres appends audit entries to the moderation_log table, joining the
// surrounding transaction so a rolled-back moderation action leaves no log
// entry behind.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO moderation_log (id, actor_admin_id, target_type, target_id, action, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.ActorAdminID),
		string(entry.TargetType),
		entry.TargetID,
		entry.Action,
		nullIfEmpty(entry.Reason),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert moderation log entry: %w", err)
	}
	return nil
}

func (s *Postgres) ListByTarget(ctx context.Context, targetType TargetType, targetID uuid.UUID) ([]Entry, error) {
	query := `
		SELECT id, actor_admin_id, target_type, target_id, action, reason, created_at
		FROM moderation_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at
	`
	return s.list(ctx, query, string(targetType), targetID)
}

func (s *Postgres) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, actor_admin_id, target_type, target_id, action, reason, created_at
		FROM moderation_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	return s.list(ctx, query, limit)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query moderation log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry      Entry
			actorUUID  uuid.UUID
			targetKind string
			reason     sql.NullString
		)
		err := rows.Scan(&entry.ID, &actorUUID, &targetKind, &entry.TargetID, &entry.Action, &reason, &entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan moderation log entry: %w", err)
		}
		entry.ActorAdminID = id.AccountID(actorUUID)
		entry.TargetType = TargetType(targetKind)
		entry.Reason = reason.String
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation log: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
