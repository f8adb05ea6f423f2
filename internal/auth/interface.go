package auth

import "blockdocs/internal/domain/models"

// JWTVerifier validates bearer tokens.
// The middleware only depends on this, so tests can swap in a fake.
type JWTVerifier interface {
	// VerifyToken validates a token string and returns its claims.
	// Invalid, expired or wrongly signed tokens yield domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases resources held by the verifier
	Close() error
}
