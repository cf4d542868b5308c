package models

import "strings"

// Role is the authorization role asserted by the upstream backend
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleBrand       Role = "brand"
	RoleParticipant Role = "participant"
)

// Caller is the capability token passed into every mutating call. The
// ledger trusts the role assertion; it only checks it against the
// operation's requirement.
type Caller struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Admin returns an admin capability
func Admin(id string) Caller { return Caller{ID: id, Role: RoleAdmin} }

// Brand returns a brand capability
func Brand(id string) Caller { return Caller{ID: id, Role: RoleBrand} }

// Participant returns a participant capability
func Participant(id string) Caller { return Caller{ID: id, Role: RoleParticipant} }

// IsAdmin reports whether the caller holds the admin role
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin && c.ID != ""
}

// Is reports whether the caller is the given identity
func (c Caller) Is(id string) bool {
	return c.ID != "" && c.ID == id
}

// ParseRole normalizes a role string; unknown values yield ""
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleBrand, RoleParticipant:
		return r
	}
	return ""
}
