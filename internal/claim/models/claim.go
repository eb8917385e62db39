package models

import (
	"strings"
	"time"

	accountmodels "hometrust/internal/account/models"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
)

// ClaimKind identifies the verification document bundle a claim carries.
type ClaimKind string

const (
	KindNationalID          ClaimKind = "national-id"
	KindDriverLicense       ClaimKind = "driver-license"
	KindCompanyRegistration ClaimKind = "company-registration"
)

// Valid reports whether k is a known kind.
func (k ClaimKind) Valid() bool {
	switch k {
	case KindNationalID, KindDriverLicense, KindCompanyRegistration:
		return true
	}
	return false
}

// AllowedForRole reports whether the role may submit this kind. Individuals
// verify with government ID, companies with their registration certificate.
func (k ClaimKind) AllowedForRole(role accountmodels.Role) bool {
	switch k {
	case KindNationalID, KindDriverLicense:
		return role == accountmodels.RoleAgent || role == accountmodels.RoleLandlord
	case KindCompanyRegistration:
		return role == accountmodels.RoleCompany
	}
	return false
}

// ClaimStatus is the review state. Approved and rejected are terminal for the
// claim instance; a resubmission is a new record.
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"
	StatusApproved ClaimStatus = "approved"
	StatusRejected ClaimStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s ClaimStatus) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Claim is a single verification submission. History is preserved: review
// never overwrites a prior claim, and only terminal rejected claims may be
// purged.
type Claim struct {
	ID              id.ClaimID   `json:"id"`
	AccountID       id.AccountID `json:"account_id"`
	Kind            ClaimKind    `json:"kind"`
	Payload         Payload      `json:"payload"`
	Status          ClaimStatus  `json:"status"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	AdminMessage    string       `json:"admin_message,omitempty"`
	NameMatchHint   *bool        `json:"name_match_hint,omitempty"`
	ReviewerID      id.AccountID `json:"reviewer_id,omitempty"`
	Version         int64        `json:"version"`
	SubmittedAt     time.Time    `json:"submitted_at"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewClaim constructs a pending claim after validating the payload against the
// kind limits. Role and account-status preconditions are the service's job.
func NewClaim(claimID id.ClaimID, accountID id.AccountID, payload Payload, now time.Time) (*Claim, error) {
	if payload == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "claim payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &Claim{
		ID:          claimID,
		AccountID:   accountID,
		Kind:        payload.Kind(),
		Payload:     payload,
		Status:      StatusPending,
		Version:     1,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}

// CanReview checks that the claim is still reviewable.
func (c *Claim) CanReview() error {
	if c.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "claim has already been reviewed")
	}
	return nil
}

// ApplyApproval moves the claim to approved.
func (c *Claim) ApplyApproval(reviewer id.AccountID, adminMessage string, now time.Time) {
	c.Status = StatusApproved
	c.ReviewerID = reviewer
	c.AdminMessage = strings.TrimSpace(adminMessage)
	c.ReviewedAt = &now
	c.UpdatedAt = now
}

// RecordNameMatchHint stores the reviewer's judgement on whether the document
// name matches the account. Advisory only; it gates nothing.
func (c *Claim) RecordNameMatchHint(hint *bool) {
	c.NameMatchHint = hint
}

// CanReject checks the rejection transition. A rejection without a reason is
// refused; the reason is echoed to the account.
func (c *Claim) CanReject(reason string) error {
	if err := c.CanReview(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	return nil
}

// ApplyRejection moves the claim to rejected.
func (c *Claim) ApplyRejection(reviewer id.AccountID, reason, adminMessage string, now time.Time) {
	c.Status = StatusRejected
	c.ReviewerID = reviewer
	c.RejectionReason = strings.TrimSpace(reason)
	c.AdminMessage = strings.TrimSpace(adminMessage)
	c.ReviewedAt = &now
	c.UpdatedAt = now
}

// CanPurge checks the explicit admin purge. Only terminal rejected claims may
// be removed; approved claims are the account's verification provenance.
func (c *Claim) CanPurge() error {
	if c.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidState, "only rejected claims can be purged")
	}
	return nil
}
