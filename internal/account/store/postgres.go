package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hometrust/internal/account/models"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
	txcontext "hometrust/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Postgres persists accounts in PostgreSQL. All methods join a transaction
// placed in the context by the moderation orchestrator's tx runner.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `
	id, email, role, verified, verification_status, account_status,
	suspended_until, last_moderation_reason, last_admin_message,
	version, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(account.ID),
		account.Email,
		string(account.Role),
		account.Verified,
		string(account.VerificationStatus),
		string(account.Status),
		account.SuspendedUntil,
		nullIfEmpty(account.LastModerationReason),
		nullIfEmpty(account.LastAdminMessage),
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(accountID))
	return scanAccount(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, email)
	return scanAccount(row)
}

func (s *Postgres) ListByStatus(ctx context.Context, status *models.Status) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if status != nil {
		query += ` WHERE account_status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at`

	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// Execute locks the account row with FOR UPDATE, runs validate then mutate,
// and writes the result back with a version bump. Must run inside a
// transaction so the lock spans the cascade that follows.
func (s *Postgres) Execute(ctx context.Context, accountID id.AccountID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {
	exec := txcontext.Executor(ctx, s.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	account, err := scanAccount(exec.QueryRowContext(ctx, query, uuid.UUID(accountID)))
	if err != nil {
		return nil, err
	}

	if err := validate(account); err != nil {
		return nil, err
	}
	mutate(account)
	account.Version++

	if err := s.write(ctx, exec, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Update writes the account back guarded by an optimistic version check.
func (s *Postgres) Update(ctx context.Context, account *models.Account) error {
	exec := txcontext.Executor(ctx, s.db)
	readVersion := account.Version
	account.Version++

	query := `
		UPDATE accounts
		SET email = $2, role = $3, verified = $4, verification_status = $5,
		    account_status = $6, suspended_until = $7, last_moderation_reason = $8,
		    last_admin_message = $9, version = $10, updated_at = $11
		WHERE id = $1 AND version = $12
	`
	res, err := exec.ExecContext(ctx, query,
		uuid.UUID(account.ID),
		account.Email,
		string(account.Role),
		account.Verified,
		string(account.VerificationStatus),
		string(account.Status),
		account.SuspendedUntil,
		nullIfEmpty(account.LastModerationReason),
		nullIfEmpty(account.LastAdminMessage),
		account.Version,
		account.UpdatedAt,
		readVersion,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account affected rows: %w", err)
	}
	if affected == 0 {
		account.Version = readVersion
		return sentinel.ErrStaleVersion
	}
	return nil
}

func (s *Postgres) write(ctx context.Context, exec txcontext.Querier, account *models.Account) error {
	query := `
		UPDATE accounts
		SET email = $2, role = $3, verified = $4, verification_status = $5,
		    account_status = $6, suspended_until = $7, last_moderation_reason = $8,
		    last_admin_message = $9, version = $10, updated_at = $11
		WHERE id = $1
	`
	_, err := exec.ExecContext(ctx, query,
		uuid.UUID(account.ID),
		account.Email,
		string(account.Role),
		account.Verified,
		string(account.VerificationStatus),
		string(account.Status),
		account.SuspendedUntil,
		nullIfEmpty(account.LastModerationReason),
		nullIfEmpty(account.LastAdminMessage),
		account.Version,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, accountID id.AccountID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM accounts WHERE id = $1`, uuid.UUID(accountID))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account          models.Account
		accountUUID      uuid.UUID
		role             string
		verification     string
		status           string
		suspendedUntil   sql.NullTime
		moderationReason sql.NullString
		adminMessage     sql.NullString
	)
	err := row.Scan(
		&accountUUID,
		&account.Email,
		&role,
		&account.Verified,
		&verification,
		&status,
		&suspendedUntil,
		&moderationReason,
		&adminMessage,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	account.ID = id.AccountID(accountUUID)
	account.Role = models.Role(role)
	account.VerificationStatus = models.VerificationStatus(verification)
	account.Status = models.Status(status)
	if suspendedUntil.Valid {
		t := suspendedUntil.Time
		account.SuspendedUntil = &t
	}
	account.LastModerationReason = moderationReason.String
	account.LastAdminMessage = adminMessage.String
	return &account, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
