package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the token pair issued by the auth service. Access authorizes
// API calls; Refresh is presented to obtain a new pair.
type Credential struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Expiry returns the expiration time carried in the access token's "exp"
// claim. The signature is not verified: the client only needs the hint to
// decide when to refresh. ok is false when the token is not a JWT or has no
// expiration claim.
func (c Credential) Expiry() (time.Time, bool) {
	if c.Access == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Access, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether the access token expires before now+leeway.
// Tokens without a known expiry never report true.
func (c Credential) ExpiresWithin(now time.Time, leeway time.Duration) bool {
	exp, ok := c.Expiry()
	if !ok {
		return false
	}
	return exp.Before(now.Add(leeway))
}
