package models

import (
	"strings"
	"time"

	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
)

// Account is the aggregate root for an identity on the marketplace.
//
// Invariants:
//   - Email is non-empty and contains a domain part
//   - Verified is true if and only if VerificationStatus is approved
//   - Status transitions: active -> suspended|banned, suspended -> active|banned,
//     banned -> active. Deletion is terminal and handled by the store.
//
// # Cascade Invariant
//
// While Status is banned, every listing owned by this account carries
// flagged=true with flagSource=account-status. Suspension hides listings
// through derived visibility only (no listing mutation), so it stays
// time-boxed and reversible. The moderation orchestrator enforces both.
type Account struct {
	ID                   id.AccountID       `json:"id"`
	Email                string             `json:"email"`
	Role                 Role               `json:"role"`
	Verified             bool               `json:"verified"`
	VerificationStatus   VerificationStatus `json:"verification_status"`
	Status               Status             `json:"status"`
	SuspendedUntil       *time.Time         `json:"suspended_until,omitempty"`
	LastModerationReason string             `json:"last_moderation_reason,omitempty"`
	LastAdminMessage     string             `json:"last_admin_message,omitempty"`
	Version              int64              `json:"version"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NewAccount constructs a freshly registered account: active, unverified.
func NewAccount(accountID id.AccountID, email string, role Role, now time.Time) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account email must contain a domain")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown account role")
	}
	return &Account{
		ID:                 accountID,
		Email:              email,
		Role:               role,
		Verified:           false,
		VerificationStatus: VerificationNone,
		Status:             StatusActive,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// EmailDomain returns the domain part of the account email.
func (a *Account) EmailDomain() string {
	if at := strings.LastIndexByte(a.Email, '@'); at >= 0 {
		return a.Email[at+1:]
	}
	return ""
}

func (a *Account) IsActive() bool { return a.Status == StatusActive }

// CanSuspend checks the suspend transition. Suspending an already suspended
// account is rejected; suspending a banned account is allowed (it downgrades
// the sanction, cascade handling is the orchestrator's job).
func (a *Account) CanSuspend() error {
	if a.Status == StatusSuspended {
		return dErrors.New(dErrors.CodeInvariantViolation, "account is already suspended")
	}
	return nil
}

// ApplySuspension transitions the account to suspended.
// Call CanSuspend first to validate the transition.
func (a *Account) ApplySuspension(reason string, until *time.Time, now time.Time) {
	a.Status = StatusSuspended
	a.SuspendedUntil = until
	a.LastModerationReason = reason
	a.UpdatedAt = now
}

// CanBan checks the ban transition.
func (a *Account) CanBan() error {
	if a.Status == StatusBanned {
		return dErrors.New(dErrors.CodeInvariantViolation, "account is already banned")
	}
	return nil
}

// ApplyBan transitions the account to banned and clears any suspension window.
func (a *Account) ApplyBan(reason string, now time.Time) {
	a.Status = StatusBanned
	a.SuspendedUntil = nil
	a.LastModerationReason = reason
	a.UpdatedAt = now
}

// CanActivate checks the activate transition. Activation is the only path out
// of suspended or banned; there is no automatic expiry of SuspendedUntil.
func (a *Account) CanActivate() error {
	if a.Status == StatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "account is already active")
	}
	return nil
}

// ApplyActivation transitions the account back to active.
func (a *Account) ApplyActivation(reason string, now time.Time) {
	a.Status = StatusActive
	a.SuspendedUntil = nil
	a.LastModerationReason = reason
	a.UpdatedAt = now
}

// ApplyVerificationPending marks the account as having a claim under review.
func (a *Account) ApplyVerificationPending(now time.Time) {
	a.VerificationStatus = VerificationPending
	a.Verified = false
	a.UpdatedAt = now
}

// ApplyVerificationApproved flips the verified flag. The verified<->approved
// invariant holds because this is the only place Verified becomes true.
func (a *Account) ApplyVerificationApproved(now time.Time) {
	a.VerificationStatus = VerificationApproved
	a.Verified = true
	a.UpdatedAt = now
}

// ApplyVerificationRejected records a failed review.
func (a *Account) ApplyVerificationRejected(now time.Time) {
	a.VerificationStatus = VerificationRejected
	a.Verified = false
	a.UpdatedAt = now
}
