package authapi

import (
	"encoding/json"

	"github.com/jrsteele09/go-session-client/users"
)

const (
	LoginPath   = "/api/v1/auth/login"
	RefreshPath = "/api/v1/auth/refresh"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginData is the data object of a successful login. Everything besides
// the tokens describes the account and is kept as the session profile.
type LoginData struct {
	users.Profile
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (d *LoginData) UnmarshalJSON(data []byte) error {
	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	var profile users.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return err
	}
	delete(profile.Extra, "accessToken")
	delete(profile.Extra, "refreshToken")
	if len(profile.Extra) == 0 {
		profile.Extra = nil
	}
	*d = LoginData{Profile: profile, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	return nil
}

func (d LoginData) MarshalJSON() ([]byte, error) {
	p := d.Profile
	fields := make(map[string]json.RawMessage, len(p.Extra)+2)
	for k, v := range p.Extra {
		fields[k] = v
	}
	fields["accessToken"], _ = json.Marshal(d.AccessToken)
	if d.RefreshToken != "" {
		fields["refreshToken"], _ = json.Marshal(d.RefreshToken)
	}
	p.Extra = fields
	return json.Marshal(p)
}

// User returns the profile part of the login data, with the role normalised.
func (d *LoginData) User() *users.Profile {
	p := d.Profile
	p.Role = users.ParseRole(string(p.Role))
	return &p
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
