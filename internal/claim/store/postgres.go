package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hometrust/internal/claim/models"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
	txcontext "hometrust/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Postgres persists claims in PostgreSQL. The trust_claims table carries a
// partial unique index on (account_id) WHERE status = 'pending', which makes
// the check-then-insert of a submission atomic across processes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const claimColumns = `
	id, account_id, kind, payload, status, rejection_reason, admin_message,
	name_match_hint, reviewer_id, version, submitted_at, reviewed_at, updated_at`

func (s *Postgres) Create(ctx context.Context, claim *models.Claim) error {
	payload, err := json.Marshal(claim.Payload)
	if err != nil {
		return fmt.Errorf("marshal claim payload: %w", err)
	}

	query := `
		INSERT INTO trust_claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(claim.ID),
		uuid.UUID(claim.AccountID),
		string(claim.Kind),
		payload,
		string(claim.Status),
		nullIfEmpty(claim.RejectionReason),
		nullIfEmpty(claim.AdminMessage),
		claim.NameMatchHint,
		nullableUUID(uuid.UUID(claim.ReviewerID)),
		claim.Version,
		claim.SubmittedAt,
		claim.ReviewedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM trust_claims WHERE id = $1`
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(claimID))
	return scanClaim(row)
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM trust_claims WHERE account_id = $1 ORDER BY submitted_at`
	return s.list(ctx, query, uuid.UUID(accountID))
}

func (s *Postgres) ListByStatus(ctx context.Context, status *models.ClaimStatus) ([]*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM trust_claims`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY submitted_at`
	return s.list(ctx, query, args...)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Claim, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

// Execute locks the claim row with FOR UPDATE, runs validate then mutate, and
// writes the result back with a version bump.
func (s *Postgres) Execute(ctx context.Context, claimID id.ClaimID, validate func(*models.Claim) error, mutate func(*models.Claim)) (*models.Claim, error) {
	exec := txcontext.Executor(ctx, s.db)

	query := `SELECT ` + claimColumns + ` FROM trust_claims WHERE id = $1 FOR UPDATE`
	claim, err := scanClaim(exec.QueryRowContext(ctx, query, uuid.UUID(claimID)))
	if err != nil {
		return nil, err
	}

	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)
	claim.Version++

	update := `
		UPDATE trust_claims
		SET status = $2, rejection_reason = $3, admin_message = $4,
		    name_match_hint = $5, reviewer_id = $6, version = $7,
		    reviewed_at = $8, updated_at = $9
		WHERE id = $1
	`
	_, err = exec.ExecContext(ctx, update,
		uuid.UUID(claim.ID),
		string(claim.Status),
		nullIfEmpty(claim.RejectionReason),
		nullIfEmpty(claim.AdminMessage),
		claim.NameMatchHint,
		nullableUUID(uuid.UUID(claim.ReviewerID)),
		claim.Version,
		claim.ReviewedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("write claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) Delete(ctx context.Context, claimID id.ClaimID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM trust_claims WHERE id = $1`, uuid.UUID(claimID))
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete claim affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteByAccount(ctx context.Context, accountID id.AccountID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM trust_claims WHERE account_id = $1`, uuid.UUID(accountID))
	if err != nil {
		return fmt.Errorf("delete claims by account: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		claim           models.Claim
		claimUUID       uuid.UUID
		accountUUID     uuid.UUID
		kind            string
		payload         []byte
		status          string
		rejectionReason sql.NullString
		adminMessage    sql.NullString
		nameMatchHint   sql.NullBool
		reviewerUUID    uuid.NullUUID
		reviewedAt      sql.NullTime
	)
	err := row.Scan(
		&claimUUID,
		&accountUUID,
		&kind,
		&payload,
		&status,
		&rejectionReason,
		&adminMessage,
		&nameMatchHint,
		&reviewerUUID,
		&claim.Version,
		&claim.SubmittedAt,
		&reviewedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	claim.ID = id.ClaimID(claimUUID)
	claim.AccountID = id.AccountID(accountUUID)
	claim.Kind = models.ClaimKind(kind)
	claim.Status = models.ClaimStatus(status)
	claim.RejectionReason = rejectionReason.String
	claim.AdminMessage = adminMessage.String
	if nameMatchHint.Valid {
		hint := nameMatchHint.Bool
		claim.NameMatchHint = &hint
	}
	if reviewerUUID.Valid {
		claim.ReviewerID = id.AccountID(reviewerUUID.UUID)
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		claim.ReviewedAt = &t
	}
	decoded, err := models.UnmarshalPayload(claim.Kind, payload)
	if err != nil {
		return nil, fmt.Errorf("decode claim payload: %w", err)
	}
	claim.Payload = decoded
	return &claim, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	if u == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u, Valid: true}
}
