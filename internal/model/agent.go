package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AgentStatus represents the publication state of an agent.
type AgentStatus string

const (
	StatusDraft     AgentStatus = "draft"
	StatusPublished AgentStatus = "published"
	StatusArchived  AgentStatus = "archived"
)

// WorkflowStep is one step in an agent's configured workflow.
type WorkflowStep struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Agent represents a configured AI assistant record: prompt, model
// parameters, and workflow steps. Agents are created by a profile and may
// descend from another agent via ParentAgentID (clone lineage).
type Agent struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Tags          []string       `json:"tags"`
	Status        AgentStatus    `json:"status"`
	LLMProvider   *string        `json:"llm_provider,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	SystemPrompt  *string        `json:"system_prompt,omitempty"`
	WorkflowSteps []WorkflowStep `json:"workflow_steps"`
	Language      *string        `json:"language,omitempty"`
	Version       int            `json:"version"`
	CreatorID     uuid.UUID      `json:"creator_id"`
	CollectionID  *uuid.UUID     `json:"collection_id,omitempty"`
	ParentAgentID *uuid.UUID     `json:"parent_agent_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ValidStatus reports whether s is a known agent status.
func ValidStatus(s AgentStatus) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Field length limits for agent fields. These keep caller-controlled text out
// of pathological territory for the catalog list queries and TEXT columns.
const (
	MaxAgentNameLen    = 200
	MaxDescriptionLen  = 8 * 1024  // 8 KB
	MaxSystemPromptLen = 64 * 1024 // 64 KB
	MaxTagsPerAgent    = 20
)

// ValidateAgentName checks the name field of a create/update request.
func ValidateAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > MaxAgentNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxAgentNameLen)
	}
	return nil
}

// ValidateTag checks that a tag conforms to the allowed format.
// Tags must start with a lowercase letter and contain only lowercase
// alphanumeric characters, hyphens, and underscores.
func ValidateTag(tag string) error {
	if len(tag) == 0 {
		return fmt.Errorf("tag must not be empty")
	}
	if len(tag) > 64 {
		return fmt.Errorf("tag must be at most 64 characters")
	}
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if i == 0 {
			if c < 'a' || c > 'z' {
				return fmt.Errorf("tag must start with a lowercase letter, got %q", c)
			}
			continue
		}
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return fmt.Errorf("tag contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}

// ValidateAgent checks the invariants of a full agent record before insert.
func ValidateAgent(a Agent) error {
	if err := ValidateAgentName(a.Name); err != nil {
		return err
	}
	if a.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(a.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds maximum length of %d bytes", MaxDescriptionLen)
	}
	if !ValidStatus(a.Status) {
		return fmt.Errorf("invalid status: must be one of draft, published, archived")
	}
	if a.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if a.TopP != nil && (*a.TopP < 0 || *a.TopP > 1) {
		return fmt.Errorf("top_p must be between 0 and 1")
	}
	if a.MaxTokens != nil && *a.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if a.SystemPrompt != nil && len(*a.SystemPrompt) > MaxSystemPromptLen {
		return fmt.Errorf("system_prompt exceeds maximum length of %d bytes", MaxSystemPromptLen)
	}
	if len(a.Tags) > MaxTagsPerAgent {
		return fmt.Errorf("at most %d tags allowed", MaxTagsPerAgent)
	}
	for _, tag := range a.Tags {
		if err := ValidateTag(tag); err != nil {
			return err
		}
	}
	for i, step := range a.WorkflowSteps {
		if step.Name == "" {
			return fmt.Errorf("workflow_steps[%d].name is required", i)
		}
	}
	return nil
}
