package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/taskmate/internal/domain"
)

// identityRepo implements domain.IdentityRepository using SQLite.
type identityRepo struct {
	db *sql.DB
}

func (r *identityRepo) Create(ctx context.Context, identity *domain.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	meta, err := json.Marshal(identity.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		identity.ID, identity.Email, identity.PasswordHash, string(meta), now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	identity.CreatedAt = now
	return nil
}

func (r *identityRepo) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, "id", id)
}

func (r *identityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getOne(ctx, "email", email)
}

func (r *identityRepo) getOne(ctx context.Context, column, value string) (*domain.Identity, error) {
	identity := &domain.Identity{}
	var meta string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, metadata, created_at
		 FROM identities WHERE `+column+` = ?`, value,
	).Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &meta, &identity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query identity by %s: %w", column, err)
	}
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &identity.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return identity, nil
}

// isUniqueConstraintError checks if the error is a SQLite unique or primary
// key constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
