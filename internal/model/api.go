package model

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// SignupRequest is the request body for POST /auth/signup.
type SignupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

// AuthTokenRequest is the request body for POST /auth/token.
type AuthTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRoleRequest is the request body for PATCH /v1/profiles/{id}/role.
type UpdateProfileRoleRequest struct {
	Role UserRole `json:"role"`
}

// AuthTokenResponse is the response for POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   Profile   `json:"profile"`
}

// CreateAgentRequest is the request body for POST /v1/agents.
type CreateAgentRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Tags          []string       `json:"tags,omitempty"`
	Status        AgentStatus    `json:"status,omitempty"`
	LLMProvider   *string        `json:"llm_provider,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	SystemPrompt  *string        `json:"system_prompt,omitempty"`
	WorkflowSteps []WorkflowStep `json:"workflow_steps,omitempty"`
	Language      *string        `json:"language,omitempty"`
	CollectionID  *uuid.UUID     `json:"collection_id,omitempty"`
	CategoryIDs   []uuid.UUID    `json:"category_ids,omitempty"`
}

// UpdateAgentRequest is the request body for PATCH /v1/agents/{id}.
// Only non-nil fields are applied.
type UpdateAgentRequest struct {
	Name          *string         `json:"name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Tags          *[]string       `json:"tags,omitempty"`
	Status        *AgentStatus    `json:"status,omitempty"`
	LLMProvider   *string         `json:"llm_provider,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	MaxTokens     *int            `json:"max_tokens,omitempty"`
	SystemPrompt  *string         `json:"system_prompt,omitempty"`
	WorkflowSteps *[]WorkflowStep `json:"workflow_steps,omitempty"`
	Language      *string         `json:"language,omitempty"`
	CollectionID  *uuid.UUID      `json:"collection_id,omitempty"`
}

// SetAgentCategoriesRequest is the request body for PUT /v1/agents/{id}/categories.
type SetAgentCategoriesRequest struct {
	CategoryIDs []uuid.UUID `json:"category_ids"`
}

// CloneAgentRequest is the request body for POST /v1/agents/{id}/clone.
// Name is optional; the default is the source name with a "(copy)" suffix.
type CloneAgentRequest struct {
	Name *string `json:"name,omitempty"`
}

// RecordExecutionRequest is the request body for POST /v1/agents/{id}/executions.
type RecordExecutionRequest struct {
	EstimatedCost      *float64       `json:"estimated_cost,omitempty"`
	SatisfactionRating *float64       `json:"satisfaction_rating,omitempty"`
	ExecutionTimeMs    *int64         `json:"execution_time_ms,omitempty"`
	Feedback           *string        `json:"feedback,omitempty"`
	InputData          map[string]any `json:"input_data,omitempty"`
	OutputData         map[string]any `json:"output_data,omitempty"`
}

// CatalogAgent is an agent annotated for catalog list views: the ids of its
// linked categories and its total execution count.
type CatalogAgent struct {
	Agent
	CategoryIDs    []uuid.UUID `json:"category_ids"`
	ExecutionCount int         `json:"execution_count"`
	Badges         Badges      `json:"badges"`
}

// Badges is the tag projection shown on a catalog card.
type Badges struct {
	Visible  []string `json:"visible"`
	Overflow string   `json:"overflow,omitempty"` // "+N" when more tags exist
}

// CategoryRef is the compact category shape joined into agent detail views.
type CategoryRef struct {
	Name string       `json:"name"`
	Type CategoryType `json:"type"`
}

// AgentDetail is the full agent view for GET /v1/catalog/agents/{id}.
type AgentDetail struct {
	Agent
	CreatorName    *string       `json:"creator_name,omitempty"`
	CollectionName *string       `json:"collection_name,omitempty"`
	Categories     []CategoryRef `json:"categories"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Postgres     string `json:"postgres"`
	BufferDepth  int    `json:"buffer_depth"`
	BufferStatus string `json:"buffer_status"` // "ok", "high", "critical"
	Uptime       int64  `json:"uptime_seconds"`
}
