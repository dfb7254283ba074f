package domain

import "time"

// Reserved identities that can never be disabled or deleted.
const (
	GuestUsername = "guest"
	AdminUserID   = "admin"
)

// DefaultUserRoleID is assigned to accounts created without an explicit role.
const DefaultUserRoleID = "user"

// User mirrors the persisted representation in the users table.
// DeleteDate acts as a tombstone: a non-nil value means the row is
// soft-deleted and must be ignored by every active-user lookup.
type User struct {
	ID             string
	RoleID         string
	Username       string
	Email          string
	PasswordHash   string
	StorageQuota   int64
	StorageCurrent int64
	TotpSecret     *string
	Onboarding     bool
	CreateDate     time.Time
	DisableDate    *time.Time
	DeleteDate     *time.Time
}

// IsDisabled reports whether the account carries a disable timestamp.
func (u User) IsDisabled() bool {
	return u.DisableDate != nil
}

// IsGuest reports whether the user is the reserved guest identity.
func (u User) IsGuest() bool {
	return u.Username == GuestUsername
}

// TotpEnabled reports whether a TOTP secret gates this account's logins.
func (u User) TotpEnabled() bool {
	return u.TotpSecret != nil && *u.TotpSecret != ""
}
