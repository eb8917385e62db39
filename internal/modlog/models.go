// Package modlog is the append-only moderation audit log. Entries are written
// in the same transaction as the moderation action they record and are never
// mutated or deleted afterwards.
package modlog

import (
	"time"

	"github.com/google/uuid"

	id "hometrust/pkg/domain"
)

// TargetType names the record a log entry is about.
type TargetType string

const (
	TargetAccount TargetType = "account"
	TargetClaim   TargetType = "claim"
	TargetListing TargetType = "listing"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetAccount, TargetClaim, TargetListing:
		return true
	}
	return false
}

// Actions recorded by the moderation orchestrator. A cascade writes one entry
// per touched record: a ban over 12 listings yields 1 account entry and 12
// listing entries.
const (
	ActionClaimApproved  = "claim_approved"
	ActionClaimRejected  = "claim_rejected"
	ActionClaimPurged    = "claim_purged"
	ActionSuspended      = "account_suspended"
	ActionBanned         = "account_banned"
	ActionActivated      = "account_activated"
	ActionDeleted        = "account_deleted"
	ActionFlagged        = "listing_flagged"
	ActionUnflagged      = "listing_unflagged"
	ActionListingDeleted = "listing_deleted"
	ActionAddressChecked = "listing_address_verified"
)

// Entry is one audit record.
type Entry struct {
	ID           uuid.UUID    `json:"id"`
	ActorAdminID id.AccountID `json:"actor_admin_id"`
	TargetType   TargetType   `json:"target_type"`
	TargetID     uuid.UUID    `json:"target_id"`
	Action       string       `json:"action"`
	Reason       string       `json:"reason,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// NewEntry constructs an entry with a fresh ID.
func NewEntry(actor id.AccountID, targetType TargetType, targetID uuid.UUID, action, reason string, at time.Time) Entry {
	return Entry{
		ID:           uuid.New(),
		ActorAdminID: actor,
		TargetType:   targetType,
		TargetID:     targetID,
		Action:       action,
		Reason:       reason,
		Timestamp:    at,
	}
}
