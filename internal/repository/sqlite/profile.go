package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
)

// profileRepo implements domain.ProfileStore using SQLite.
type profileRepo struct {
	db *sql.DB
}

func (r *profileRepo) GetProfile(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	p := &domain.ProfileRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, about_me, profile_image
		 FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.AboutMe, &p.ProfileImage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *profileRepo) InsertProfile(ctx context.Context, rec *domain.ProfileRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: profile id is required", domain.ErrInvalidInput)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, email, role, about_me, profile_image, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Email, roleOrDefault(rec.Role), rec.AboutMe, rec.ProfileImage, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrConflict
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: no identity %s", domain.ErrInvalidInput, rec.ID)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// UpsertProfile inserts the row or overwrites its display fields. An empty
// email in rec keeps the stored one.
func (r *profileRepo) UpsertProfile(ctx context.Context, rec *domain.ProfileRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: profile id is required", domain.ErrInvalidInput)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, email, role, about_me, profile_image, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE profiles.email END,
		   role = excluded.role,
		   about_me = excluded.about_me,
		   profile_image = excluded.profile_image,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.Email, roleOrDefault(rec.Role), rec.AboutMe, rec.ProfileImage, time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: no identity %s", domain.ErrInvalidInput, rec.ID)
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func roleOrDefault(role string) string {
	if role == "" {
		return domain.DefaultRole
	}
	return role
}
