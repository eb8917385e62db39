package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hometrust/internal/artifact"
	"hometrust/internal/listing/models"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
	txcontext "hometrust/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Postgres persists listings in PostgreSQL. Every query filters out
// tombstoned rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const listingColumns = `
	id, owner_id, title, flagged, flag_source, flag_reason, deleted,
	proof_of_address, address_verified, version, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, listing *models.Listing) error {
	proof, err := marshalProof(listing.ProofOfAddress)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(listing.ID),
		uuid.UUID(listing.OwnerID),
		listing.Title,
		listing.Flagged,
		nullIfEmpty(string(listing.FlagSource)),
		nullIfEmpty(listing.FlagReason),
		listing.Deleted,
		proof,
		listing.AddressVerified,
		listing.Version,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 AND NOT deleted`
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(listingID))
	return scanListing(row)
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.AccountID) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 AND NOT deleted ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(ownerID))
}

func (s *Postgres) ListByFlagged(ctx context.Context, flagged *bool) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE NOT deleted`
	args := []any{}
	if flagged != nil {
		query += ` AND flagged = $1`
		args = append(args, *flagged)
	}
	query += ` ORDER BY created_at`
	return s.list(ctx, query, args...)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Listing, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var out []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}

// Execute locks the listing row with FOR UPDATE, runs validate then mutate,
// and writes the result back with a version bump. Must run inside a
// transaction when part of an account cascade so all listing locks are held
// until the cascade commits.
func (s *Postgres) Execute(ctx context.Context, listingID id.ListingID, validate func(*models.Listing) error, mutate func(*models.Listing)) (*models.Listing, error) {
	exec := txcontext.Executor(ctx, s.db)

	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 AND NOT deleted FOR UPDATE`
	listing, err := scanListing(exec.QueryRowContext(ctx, query, uuid.UUID(listingID)))
	if err != nil {
		return nil, err
	}

	if err := validate(listing); err != nil {
		return nil, err
	}
	mutate(listing)
	listing.Version++

	update := `
		UPDATE listings
		SET flagged = $2, flag_source = $3, flag_reason = $4, deleted = $5,
		    address_verified = $6, version = $7, updated_at = $8
		WHERE id = $1
	`
	_, err = exec.ExecContext(ctx, update,
		uuid.UUID(listing.ID),
		listing.Flagged,
		nullIfEmpty(string(listing.FlagSource)),
		nullIfEmpty(listing.FlagReason),
		listing.Deleted,
		listing.AddressVerified,
		listing.Version,
		listing.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("write listing: %w", err)
	}
	return listing, nil
}

func (s *Postgres) DeleteByOwner(ctx context.Context, ownerID id.AccountID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM listings WHERE owner_id = $1`, uuid.UUID(ownerID))
	if err != nil {
		return fmt.Errorf("delete listings by owner: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var (
		listing     models.Listing
		listingUUID uuid.UUID
		ownerUUID   uuid.UUID
		flagSource  sql.NullString
		flagReason  sql.NullString
		proof       []byte
	)
	err := row.Scan(
		&listingUUID,
		&ownerUUID,
		&listing.Title,
		&listing.Flagged,
		&flagSource,
		&flagReason,
		&listing.Deleted,
		&proof,
		&listing.AddressVerified,
		&listing.Version,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	listing.ID = id.ListingID(listingUUID)
	listing.OwnerID = id.AccountID(ownerUUID)
	listing.FlagSource = models.FlagSource(flagSource.String)
	listing.FlagReason = flagReason.String
	if len(proof) > 0 {
		var ref artifact.Ref
		if err := json.Unmarshal(proof, &ref); err != nil {
			return nil, fmt.Errorf("decode proof of address: %w", err)
		}
		listing.ProofOfAddress = &ref
	}
	return &listing, nil
}

func marshalProof(ref *artifact.Ref) ([]byte, error) {
	if ref == nil {
		return nil, nil
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("marshal proof of address: %w", err)
	}
	return data, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
