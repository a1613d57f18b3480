package domain

import "time"

// UserType distinguishes the broad categories of platform users.
type UserType string

const (
	UserTypeEmployee   UserType = "employee"
	UserTypePartner    UserType = "partner"
	UserTypeSuperAdmin UserType = "super_admin"
)

// Role is the fine-grained role assigned when an account is approved.
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"
	RoleAdmin            Role = "admin"
	RoleInventoryManager Role = "inventory_manager"
	RoleTransporter      Role = "transporter"
	RoleCoordinator      Role = "coordinator"
	RolePartner          Role = "partner"
)

// ValidRole reports whether r is one of the assignable roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleInventoryManager, RoleTransporter, RoleCoordinator, RolePartner:
		return true
	}
	return false
}

// ApprovalStatus is the admin-gated account lifecycle state.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Account is a platform account. Credentials are either a password hash
// (manual registration) or a federated identity subject; a freshly
// started federated registration may briefly have neither.
type Account struct {
	ID          string
	Email       string
	DisplayName string

	PasswordHash string  // argon2id PHC string, empty for federated accounts
	FederatedID  *string // external IdP subject (nullable)

	UserType       UserType
	Role           Role
	ApprovalStatus ApprovalStatus
	Active         bool

	TwoFactorEnabled bool
	TwoFactorSecret  *string // base32 TOTP secret, set only while enrolled

	FailedAttempts int
	LockedUntil    *time.Time

	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
	LastLoginAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAuthenticate reports whether the account's approval state permits
// session issuance. This is the single gate consulted at login and on
// every privileged request.
func (a Account) CanAuthenticate() bool {
	return a.ApprovalStatus == ApprovalApproved && a.Active
}

// IsLocked reports whether the lockout window is still open relative to
// now. Expiry is lazy; nothing clears locked_until until the next
// successful verification.
func (a Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
