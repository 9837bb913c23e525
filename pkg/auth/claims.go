package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims is the payload of a Firebase ID token.
type IDTokenClaims struct {
	Email         string        `json:"email"`
	EmailVerified bool          `json:"email_verified"`
	Name          string        `json:"name,omitempty"`
	AuthTime      int64         `json:"auth_time"`
	Firebase      FirebaseClaim `json:"firebase"`
	jwt.RegisteredClaims
}

// FirebaseClaim is the nested "firebase" object Google adds to every token.
type FirebaseClaim struct {
	SignInProvider string `json:"sign_in_provider"`
	Tenant         string `json:"tenant,omitempty"`
}

func (c *IDTokenClaims) UID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// VerifiedEmail is the lower-cased email when Firebase has confirmed the
// account owns it, and empty otherwise.
func (c *IDTokenClaims) VerifiedEmail() string {
	if c == nil || !c.EmailVerified {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.Email))
}
