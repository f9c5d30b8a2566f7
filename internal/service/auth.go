package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/msomdec/taskmate/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles identity registration, password sign-in and access
// token issuance, validation and revocation.
type AuthService struct {
	identities domain.IdentityRepository
	sessions   domain.AuthSessionRepository
	jwtSecret  []byte
	bcryptCost int
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewAuthService creates a new AuthService. Tokens it issues expire after tokenTTL.
func NewAuthService(identities domain.IdentityRepository, sessions domain.AuthSessionRepository, jwtSecret string, bcryptCost int, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignUp creates a new identity and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     metadata,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	return s.issue(ctx, identity)
}

// SignIn verifies credentials and returns a fresh session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	identity, err := s.identities.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	return s.issue(ctx, identity)
}

// ValidateToken checks the token's signature, expiry and revocation state
// and returns the user it was issued to.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*domain.AuthUser, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get auth session: %w", err)
	}
	if session.RevokedAt != nil || session.IdentityID != claims.Subject {
		return nil, domain.ErrUnauthorized
	}

	identity, err := s.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return toAuthUser(identity), nil
}

// SignOut revokes the token. Revoking an already revoked token is not an error.
func (s *AuthService) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("revoke auth session: %w", err)
	}
	return nil
}

func (s *AuthService) parse(tokenString string) (*accessClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, identity *domain.Identity) (*domain.Session, error) {
	now := s.now().UTC()
	record := &domain.AuthSession{
		ID:         uuid.NewString(),
		IdentityID: identity.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.tokenTTL),
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create auth session: %w", err)
	}

	claims := accessClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        record.ID,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	return &domain.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   record.ExpiresAt,
		User:        toAuthUser(identity),
	}, nil
}

func toAuthUser(identity *domain.Identity) *domain.AuthUser {
	return &domain.AuthUser{
		ID:       identity.ID,
		Email:    identity.Email,
		Metadata: identity.Metadata,
	}
}
