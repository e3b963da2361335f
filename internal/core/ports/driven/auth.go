package driven

import "github.com/custodia-labs/sercha-notes/internal/core/domain"

// AuthAdapter handles bearer token cryptographic operations.
// Tokens are issued by the surrounding product; this service only needs to
// verify them and, for tooling and tests, mint them.
type AuthAdapter interface {
	// GenerateToken signs the given claims
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken verifies a token and returns its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
