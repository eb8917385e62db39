package models

import (
	"strings"
	"time"

	"hometrust/internal/artifact"
	accountmodels "hometrust/internal/account/models"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
)

// FlagSource records who hid a listing. The distinction is what makes unflag
// and account activation safe: a cascade flag may only be cleared by
// activating the owner, and a content flag survives owner reactivation.
type FlagSource string

const (
	// FlagSourceContent marks listing-specific flags applied by an admin.
	FlagSourceContent FlagSource = "content"
	// FlagSourceAccountStatus marks flags applied by an account-level cascade.
	FlagSourceAccountStatus FlagSource = "account-status"
)

// ReasonAccountBanned is the system-generated reason on cascade flags, so
// the moderation log can tell a cascade delist apart from a content takedown.
const ReasonAccountBanned = "account banned"

// Listing is a property record owned by an account.
//
// Invariants:
//   - Deleted is terminal; deleted listings are excluded from all queries
//   - AddressVerified is monotonic; no transition sets it back to false
//   - Flagged implies a non-empty FlagSource
type Listing struct {
	ID              id.ListingID  `json:"id"`
	OwnerID         id.AccountID  `json:"owner_id"`
	Title           string        `json:"title"`
	Flagged         bool          `json:"flagged"`
	FlagSource      FlagSource    `json:"flag_source,omitempty"`
	FlagReason      string        `json:"flag_reason,omitempty"`
	Deleted         bool          `json:"-"`
	ProofOfAddress  *artifact.Ref `json:"proof_of_address,omitempty"`
	AddressVerified bool          `json:"address_verified"`
	Version         int64         `json:"version"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewListing constructs a listing for a verified owner. Ownership checks
// happen in the service; this validates only local invariants.
func NewListing(listingID id.ListingID, ownerID id.AccountID, title string, now time.Time) (*Listing, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "listing title cannot be empty")
	}
	return &Listing{
		ID:        listingID,
		OwnerID:   ownerID,
		Title:     title,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Visible derives effective visibility from the listing's own flags and the
// owner's status. Flags are persisted; owner status is joined at read time.
func (l *Listing) Visible(ownerStatus accountmodels.Status) bool {
	return !l.Flagged && !l.Deleted && ownerStatus == accountmodels.StatusActive
}

// CanFlag checks the flag transition.
func (l *Listing) CanFlag() error {
	if l.Deleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "listing is deleted")
	}
	return nil
}

// ApplyFlag hides the listing with the given provenance.
func (l *Listing) ApplyFlag(source FlagSource, reason string, now time.Time) {
	l.Flagged = true
	l.FlagSource = source
	l.FlagReason = reason
	l.UpdatedAt = now
}

// CanUnflag checks the unflag transition. Cascade flags cannot be cleared per
// listing: the owner account must be activated instead, otherwise a single
// unflag would silently re-expose a banned account's listing.
func (l *Listing) CanUnflag() error {
	if l.Deleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "listing is deleted")
	}
	if !l.Flagged {
		return dErrors.New(dErrors.CodeInvariantViolation, "listing is not flagged")
	}
	if l.FlagSource == FlagSourceAccountStatus {
		return dErrors.New(dErrors.CodeConflict, "owner account is suspended/banned; unflag the account instead")
	}
	return nil
}

// ApplyUnflag clears a content flag.
func (l *Listing) ApplyUnflag(now time.Time) {
	l.Flagged = false
	l.FlagSource = ""
	l.FlagReason = ""
	l.UpdatedAt = now
}

// CanDelete checks the delete transition.
func (l *Listing) CanDelete() error {
	if l.Deleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "listing is already deleted")
	}
	return nil
}

// ApplyDelete tombstones the listing. Terminal.
func (l *Listing) ApplyDelete(now time.Time) {
	l.Deleted = true
	l.UpdatedAt = now
}

// CanVerifyAddress checks the one-way address verification transition.
func (l *Listing) CanVerifyAddress() error {
	if l.Deleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "listing is deleted")
	}
	if l.AddressVerified {
		return dErrors.New(dErrors.CodeInvariantViolation, "listing address is already verified")
	}
	return nil
}

// ApplyVerifyAddress marks the address verified. There is no reverse
// transition.
func (l *Listing) ApplyVerifyAddress(now time.Time) {
	l.AddressVerified = true
	l.UpdatedAt = now
}
