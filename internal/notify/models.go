// Package notify implements the notification outbox. Moderation actions
// enqueue a notification once their state change committed; a background
// dispatcher publishes enqueued rows with bounded retry and dead-letters
// what cannot be delivered.
package notify

import (
	"time"

	"github.com/google/uuid"

	id "hometrust/pkg/domain"
)

// TemplateKind names the message rendered to the affected account.
type TemplateKind string

const (
	TemplateClaimApproved   TemplateKind = "claim-approved"
	TemplateClaimRejected   TemplateKind = "claim-rejected"
	TemplateSuspended       TemplateKind = "account-suspended"
	TemplateBanned          TemplateKind = "account-banned"
	TemplateActivated       TemplateKind = "account-activated"
	TemplateAccountDeleted  TemplateKind = "account-deleted"
	TemplateFlagged         TemplateKind = "listing-flagged"
	TemplateUnflagged       TemplateKind = "listing-unflagged"
	TemplateListingDeleted  TemplateKind = "listing-deleted"
	TemplateAddressVerified TemplateKind = "listing-address-verified"
)

// Status is the outbox delivery state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusDead    Status = "dead"
)

// Notification is one outbox row. Payload carries the template variables
// (reason, admin message, listing title) rendered downstream.
type Notification struct {
	ID            uuid.UUID         `json:"id"`
	AccountID     id.AccountID      `json:"account_id"`
	Template      TemplateKind      `json:"template"`
	Payload       map[string]string `json:"payload,omitempty"`
	Status        Status            `json:"status"`
	Attempts      int               `json:"attempts"`
	NextAttemptAt time.Time         `json:"next_attempt_at"`
	LastError     string            `json:"last_error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// New constructs a pending notification due immediately.
func New(accountID id.AccountID, template TemplateKind, payload map[string]string, now time.Time) *Notification {
	return &Notification{
		ID:            uuid.New(),
		AccountID:     accountID,
		Template:      template,
		Payload:       payload,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
