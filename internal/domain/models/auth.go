package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the bearer token payload accepted by the API.
// The subject is the owning user id for every document.
type Claims struct {
	jwt.RegisteredClaims        // sub, iss, aud, exp, iat
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
}

// GetUserID returns the user id from the subject claim
func (c *Claims) GetUserID() string {
	return c.Subject
}
