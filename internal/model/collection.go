package model

import (
	"time"

	"github.com/google/uuid"
)

// Collection groups agents under a creator-owned, optionally public set.
type Collection struct {
	ID           uuid.UUID `json:"id"`
	CreatorID    uuid.UUID `json:"creator_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	IsPublic     bool      `json:"is_public"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
