package domain

import (
	"context"
	"time"
)

// Identity is an auth-backend account. It is distinct from the profile row:
// an identity can exist before (or without) its profile.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// IdentityRepository persists auth identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
}

// AuthSession is the server-side record of an issued access token, used to
// revoke tokens on sign-out.
type AuthSession struct {
	ID         string
	IdentityID string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// AuthSessionRepository persists issued tokens.
type AuthSessionRepository interface {
	Create(ctx context.Context, session *AuthSession) error
	GetByID(ctx context.Context, id string) (*AuthSession, error)
	Revoke(ctx context.Context, id string) error
}
