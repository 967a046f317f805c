package users

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the coarse authorization tag the backend assigns to an account.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleProvider   Role = "PROVIDER"
	RoleUser       Role = "USER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Status is the account lifecycle state managed by admins.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
	StatusDeleted Status = "DELETED"
)

// Profile is the last-known snapshot of the signed-in account. It is only
// refreshed by a new login.
type Profile struct {
	ID          string `json:"id,omitempty"`          // Backend user ID
	Email       string `json:"email,omitempty"`       // Login email
	Name        string `json:"name,omitempty"`        // Display name
	Role        Role   `json:"role,omitempty"`        // Role at login time
	Status      Status `json:"status,omitempty"`      // Account status
	PhoneNumber string `json:"phoneNumber,omitempty"` // Optional contact number
	CreatedAt   string `json:"createdAt,omitempty"`   // As reported by the backend

	// Extra holds any other fields the backend returned, kept verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

var profileKeys = []string{"id", "email", "name", "role", "status", "phoneNumber", "createdAt"}

// profileFields has Profile's fields without its JSON methods.
type profileFields Profile

func (p *Profile) UnmarshalJSON(data []byte) error {
	var fields profileFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	for _, k := range profileKeys {
		delete(extra, k)
	}
	if len(extra) == 0 {
		extra = nil
	}
	fields.Extra = extra
	*p = Profile(fields)
	return nil
}

// MarshalJSON writes the known fields over Extra, so a backend field can
// never shadow one of them.
func (p Profile) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(profileFields(p))
	if err != nil || len(p.Extra) == 0 {
		return known, err
	}
	all := make(map[string]json.RawMessage, len(p.Extra)+len(profileKeys))
	for k, v := range p.Extra {
		all[k] = v
	}
	if err := json.Unmarshal(known, &all); err != nil {
		return nil, err
	}
	return json.Marshal(all)
}

// ParseRole normalises a backend role string. Unknown roles are kept
// verbatim so they route to pending approval rather than failing.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// IsAuthorized reports whether the role may enter protected routes.
func (r Role) IsAuthorized() bool {
	return r == RoleAdmin || r == RoleProvider
}

func (r Role) String() string {
	if r == "" {
		return "NONE"
	}
	return string(r)
}

// HasAuthorizedRole is nil-safe so callers can pass an absent profile.
func (p *Profile) HasAuthorizedRole() bool {
	if p == nil {
		return false
	}
	return p.Role.IsAuthorized()
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Profile) DisplayName() string {
	switch {
	case p == nil:
		return ""
	case p.Name != "":
		return p.Name
	default:
		return p.Email
	}
}

// ValidateStatus checks a status before it is sent to the backend.
func ValidateStatus(s Status) error {
	switch s {
	case StatusActive, StatusBlocked, StatusDeleted:
		return nil
	default:
		return fmt.Errorf("unknown user status %q", s)
	}
}
