package models

// Role classifies what an account is allowed to do on the marketplace.
type Role string

const (
	RoleHouseHunter Role = "house-hunter"
	RoleAgent       Role = "agent"
	RoleLandlord    Role = "landlord"
	RoleAdmin       Role = "admin"
	RoleCompany     Role = "company"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHouseHunter, RoleAgent, RoleLandlord, RoleAdmin, RoleCompany:
		return true
	}
	return false
}

// CanSubmitClaims reports whether the role is eligible to submit trust claims.
// House hunters and admins never verify; only roles that publish listings do.
func (r Role) CanSubmitClaims() bool {
	switch r {
	case RoleAgent, RoleLandlord, RoleCompany:
		return true
	}
	return false
}

// Status is the account-level moderation state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBanned:
		return true
	}
	return false
}

// VerificationStatus tracks where the account sits in the trust claim flow.
// It is driven by claim submission and review, never set directly by admins.
type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "none"
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Valid reports whether the verification status is one of the known states.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationNone, VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}
