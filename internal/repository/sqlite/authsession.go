package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
)

// authSessionRepo implements domain.AuthSessionRepository using SQLite.
type authSessionRepo struct {
	db *sql.DB
}

func (r *authSessionRepo) Create(ctx context.Context, session *domain.AuthSession) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, identity_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		session.ID, session.IdentityID, now, session.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert auth session: %w", err)
	}
	session.CreatedAt = now
	return nil
}

func (r *authSessionRepo) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	s := &domain.AuthSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, created_at, expires_at, revoked_at
		 FROM auth_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.IdentityID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get auth session: %w", err)
	}
	return s, nil
}

func (r *authSessionRepo) Revoke(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE auth_sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("revoke auth session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
