package model

import (
	"time"

	"github.com/google/uuid"
)

// CategoryType distinguishes the two classification axes of the catalog.
type CategoryType string

const (
	TypeProfession CategoryType = "profession"
	TypeNeed       CategoryType = "need"
)

// ValidCategoryType reports whether t is a known category type.
func ValidCategoryType(t CategoryType) bool {
	return t == TypeProfession || t == TypeNeed
}

// Category is a classification tag, many-to-many with agents.
// Reference data: immutable from the catalog's point of view.
type Category struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Type        CategoryType `json:"type"`
	Icon        *string      `json:"icon,omitempty"`
	Description *string      `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// AgentCategory is the agent↔category join row. A given pair appears at
// most once (unique constraint in the schema).
type AgentCategory struct {
	AgentID    uuid.UUID `json:"agent_id"`
	CategoryID uuid.UUID `json:"category_id"`
}
