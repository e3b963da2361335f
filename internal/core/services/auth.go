package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService implements the AuthService interface
type authService struct {
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService.
// A zero tokenTTL defaults to 24 hours.
func NewAuthService(authAdapter driven.AuthAdapter, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		authAdapter: authAdapter,
		tokenTTL:    tokenTTL,
	}
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	// Parse and validate JWT
	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	// Check expiration
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	if claims.OwnerID == "" {
		return nil, domain.ErrTokenInvalid
	}

	auth := &domain.AuthContext{
		OwnerID: claims.OwnerID,
		Subject: claims.Subject,
	}
	if claims.ExpiresAt != 0 {
		auth.ExpiresAt = time.Unix(claims.ExpiresAt, 0)
	}
	return auth, nil
}

// IssueToken mints a token for an owner
func (s *authService) IssueToken(ctx context.Context, ownerID, subject string) (string, error) {
	if ownerID == "" {
		return "", domain.ErrInvalidInput
	}

	now := time.Now()
	claims := &domain.TokenClaims{
		OwnerID:   ownerID,
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.tokenTTL).Unix(),
	}
	return s.authAdapter.GenerateToken(claims)
}
