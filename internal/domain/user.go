package domain

import (
	"strings"
	"time"
)

// Role is a portal account role.
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleAdmin Role = "ADMIN"
)

// UserStatus is an account state. Values other than the constants below are
// passed through as served.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Guest is the optional profile of a GUEST account.
type Guest struct {
	Name string `json:"name" yaml:"name"`
}

// User is a portal account.
type User struct {
	ID        string     `json:"id" yaml:"id"`
	Email     string     `json:"email" yaml:"email"`
	Role      Role       `json:"role" yaml:"role"`
	Status    UserStatus `json:"status" yaml:"status"`
	Guest     *Guest     `json:"guest,omitempty" yaml:"guest,omitempty"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
}

// EntityID implements Entity.
func (u User) EntityID() string {
	return u.ID
}

// DisplayName is the guest name when present, the email otherwise.
func (u User) DisplayName() string {
	if u.Guest != nil && strings.TrimSpace(u.Guest.Name) != "" {
		return u.Guest.Name
	}
	return u.Email
}

// IsAdmin reports whether the account has the ADMIN role.
func (u User) IsAdmin() bool {
	return strings.EqualFold(string(u.Role), string(RoleAdmin))
}

// CanDelete reports whether the account may be deleted from the admin panel.
// Admin accounts never can.
func (u User) CanDelete() bool {
	return !u.IsAdmin()
}

// Matches reports whether term (trimmed, case-insensitive) is contained in
// the guest name or the email. An empty term matches everything.
func (u User) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	name := ""
	if u.Guest != nil {
		name = strings.ToLower(u.Guest.Name)
	}
	return strings.Contains(name, term) || strings.Contains(strings.ToLower(u.Email), term)
}
