package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the persisted Wyze session state. PhoneID is generated once
// at first login and reused for the lifetime of the install; Wyze ties the
// session to it, so regenerating it invalidates the token pair.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PhoneID      string `json:"phone_id"`
	UserID       string `json:"user_id,omitempty"`
}

// Valid reports whether the credential carries a usable token pair.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// TokenExpiresAt extracts the expiry claim from the access token. Wyze access
// tokens are JWTs; the claim is read without signature verification since we
// only use it for diagnostics, never to grant anything.
func (c Credential) TokenExpiresAt() (time.Time, bool) {
	if c.AccessToken == "" {
		return time.Time{}, false
	}
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(c.AccessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
