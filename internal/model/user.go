package model

import "time"

// User represents an application user record as stored in the
// `users` table. Ordinary members always reference exactly one
// organization; only staff accounts may have a nil OrganizationID.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique, lower-cased email address.
//  Name           – full name.
//  DisplayName    – optional nickname shown to other members.
//  OrganizationID – organization the member belongs to (nil for staff only).
//  PasswordHash   – bcrypt hashed password.
//  IsActive       – whether the account is active.
//  IsStaff        – whether the account may perform staff operations.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64    // users.id
	Email          string    // users.email
	Name           string    // users.name
	DisplayName    *string   // users.display_name (nullable)
	OrganizationID *uint64   // users.organization_id (nullable)
	PasswordHash   string    // users.password_hash
	IsActive       bool      // users.is_active
	IsStaff        bool      // users.is_staff
	CreatedAt      time.Time // users.created_at
	UpdatedAt      time.Time // users.updated_at
}

// PublicName is the name other members see.
func (u User) PublicName() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Name
}

// Role names carried in the access token "role" claim.
const (
	RoleMember = "MEMBER"
	RoleStaff  = "STAFF"
)

// Role returns the token role for the user.
func (u User) Role() string {
	if u.IsStaff {
		return RoleStaff
	}
	return RoleMember
}

// UserSummary is the subset of a user exposed next to listings, intents
// and comments.
type UserSummary struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
