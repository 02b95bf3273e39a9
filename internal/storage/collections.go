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

// CreateCollection inserts a new collection.
func (db *DB) CreateCollection(ctx context.Context, c model.Collection) (model.Collection, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO collections (id, creator_id, name, description, is_public, thumbnail_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.CreatorID, c.Name, c.Description, c.IsPublic, c.ThumbnailURL, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return model.Collection{}, fmt.Errorf("storage: create collection: %w", err)
	}
	return c, nil
}

// GetCollection retrieves a collection by ID.
func (db *DB) GetCollection(ctx context.Context, id uuid.UUID) (model.Collection, error) {
	var c model.Collection
	err := db.pool.QueryRow(ctx,
		`SELECT id, creator_id, name, description, is_public, thumbnail_url, created_at, updated_at
		 FROM collections WHERE id = $1`, id,
	).Scan(&c.ID, &c.CreatorID, &c.Name, &c.Description, &c.IsPublic, &c.ThumbnailURL, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Collection{}, ErrNotFound
	}
	if err != nil {
		return model.Collection{}, fmt.Errorf("storage: get collection: %w", err)
	}
	return c, nil
}

// ListCollectionsByCreator returns a creator's collections, newest first.
func (db *DB) ListCollectionsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Collection, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, creator_id, name, description, is_public, thumbnail_url, created_at, updated_at
		 FROM collections WHERE creator_id = $1
		 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("storage: list collections by creator: %w", err)
	}
	defer rows.Close()

	collections := []model.Collection{}
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.CreatorID, &c.Name, &c.Description, &c.IsPublic, &c.ThumbnailURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate collections: %w", err)
	}
	return collections, nil
}
