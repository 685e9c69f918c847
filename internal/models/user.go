package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Role represents one capability a user holds. A user can hold several.
type Role string

const (
	RoleStudent   Role = "student"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// Roles is a set of roles kept sorted and without duplicates.
type Roles []Role

// NewRoles builds a normalized role set, dropping unknown values.
func NewRoles(values ...string) Roles {
	var out Roles
	for _, v := range values {
		out = out.With(Role(v))
	}
	return out
}

// Has reports whether the set contains role.
func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// HasAny reports whether the set contains at least one of roles.
func (rs Roles) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if rs.Has(r) {
			return true
		}
	}
	return false
}

// With returns a copy of the set with role added.
func (rs Roles) With(role Role) Roles {
	if !role.Valid() || rs.Has(role) {
		return rs
	}
	out := make(Roles, 0, len(rs)+1)
	out = append(out, rs...)
	out = append(out, role)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Without returns a copy of the set with role removed.
func (rs Roles) Without(role Role) Roles {
	out := make(Roles, 0, len(rs))
	for _, r := range rs {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

// Strings returns the set as plain strings, e.g. for a text[] column.
func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// User represents a platform account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Roles     Roles     `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Roles     Roles     `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}
