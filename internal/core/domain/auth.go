package domain

import "time"

// AuthContext contains the authenticated caller for request context.
// Every document and tag operation is scoped to OwnerID.
type AuthContext struct {
	OwnerID   string    `json:"owner_id"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the token behind this context has expired
func (a *AuthContext) IsExpired() bool {
	return !a.ExpiresAt.IsZero() && time.Now().After(a.ExpiresAt)
}

// CanAccess returns true if the caller owns a resource with the given owner
func (a *AuthContext) CanAccess(ownerID string) bool {
	return a.OwnerID != "" && a.OwnerID == ownerID
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	OwnerID   string `json:"owner_id"`
	Subject   string `json:"sub,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
