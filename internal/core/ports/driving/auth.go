package driving

import (
	"context"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// AuthService resolves the owner behind a bearer token
type AuthService interface {
	// ValidateToken validates a token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken mints a token for an owner (tooling and tests)
	IssueToken(ctx context.Context, ownerID, subject string) (string, error)
}
