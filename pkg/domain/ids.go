// Package domain defines typed identifiers shared across the engine.
//
// IDs are distinct uuid-backed types so an AccountID can never be passed where
// a ListingID is expected. Parsing enforces validity at trust boundaries:
// empty strings, malformed UUIDs and the nil UUID are all rejected.
package domain

import (
	"github.com/google/uuid"

	dErrors "hometrust/pkg/domain-errors"
)

// AccountID identifies an account (individual or company).
type AccountID uuid.UUID

// ClaimID identifies a trust claim submission.
type ClaimID uuid.UUID

// ListingID identifies a property listing.
type ListingID uuid.UUID

// NewAccountID returns a fresh random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewClaimID returns a fresh random ClaimID.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewListingID returns a fresh random ListingID.
func NewListingID() ListingID { return ListingID(uuid.New()) }

// ParseAccountID validates and returns an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseClaimID validates and returns a ClaimID.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ClaimID{}, err
	}
	return ClaimID(u), nil
}

// ParseListingID validates and returns a ListingID.
func ParseListingID(s string) (ListingID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ListingID{}, err
	}
	return ListingID(u), nil
}

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id ClaimID) String() string   { return uuid.UUID(id).String() }
func (id ListingID) String() string { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ListingID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
