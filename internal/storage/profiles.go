package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitrina-labs/vitrina/internal/model"
)

// CreateProfile inserts a new profile.
func (db *DB) CreateProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Role == "" {
		p.Role = model.RoleClient
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, full_name, avatar_url, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Email, p.FullName, p.AvatarURL, string(p.Role), p.PasswordHash, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return model.Profile{}, fmt.Errorf("storage: create profile: %w", err)
	}
	return p, nil
}

// GetProfile retrieves a profile by its ID.
func (db *DB) GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	var p model.Profile
	var role string
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, full_name, avatar_url, role, password_hash, created_at, updated_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("storage: get profile: %w", err)
	}
	p.Role = model.UserRole(role)
	return p, nil
}

// GetProfileByEmail retrieves a profile by email address.
func (db *DB) GetProfileByEmail(ctx context.Context, email string) (model.Profile, error) {
	var p model.Profile
	var role string
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, full_name, avatar_url, role, password_hash, created_at, updated_at
		 FROM profiles WHERE email = $1`, email,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("storage: get profile by email: %w", err)
	}
	p.Role = model.UserRole(role)
	return p, nil
}

// UpdateProfileRole changes a profile's role.
func (db *DB) UpdateProfileRole(ctx context.Context, id uuid.UUID, role model.UserRole) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = now() WHERE id = $1`,
		id, string(role),
	)
	if err != nil {
		return fmt.Errorf("storage: update profile role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProfiles returns the total number of profiles.
func (db *DB) CountProfiles(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count profiles: %w", err)
	}
	return n, nil
}
