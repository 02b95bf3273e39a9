package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AgentExecution is one recorded run of an agent. Rows are written once by
// the ingestion path and never mutated afterwards.
type AgentExecution struct {
	ID                 uuid.UUID      `json:"id"`
	AgentID            uuid.UUID      `json:"agent_id"`
	UserID             *uuid.UUID     `json:"user_id,omitempty"`
	EstimatedCost      *float64       `json:"estimated_cost,omitempty"`
	SatisfactionRating *float64       `json:"satisfaction_rating,omitempty"`
	ExecutionTimeMs    *int64         `json:"execution_time_ms,omitempty"`
	Feedback           *string        `json:"feedback,omitempty"`
	InputData          map[string]any `json:"input_data,omitempty"`
	OutputData         map[string]any `json:"output_data,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// MaxFeedbackLen bounds free-text execution feedback.
const MaxFeedbackLen = 16 * 1024 // 16 KB

// ValidateExecution checks an execution record before it enters the ingest
// buffer. Null cost/rating are legal; present values must be in range.
func ValidateExecution(e AgentExecution) error {
	if e.AgentID == uuid.Nil {
		return fmt.Errorf("agent_id is required")
	}
	if e.EstimatedCost != nil && *e.EstimatedCost < 0 {
		return fmt.Errorf("estimated_cost must be non-negative")
	}
	if e.SatisfactionRating != nil && (*e.SatisfactionRating < 1 || *e.SatisfactionRating > 5) {
		return fmt.Errorf("satisfaction_rating must be between 1 and 5")
	}
	if e.ExecutionTimeMs != nil && *e.ExecutionTimeMs < 0 {
		return fmt.Errorf("execution_time_ms must be non-negative")
	}
	if e.Feedback != nil && len(*e.Feedback) > MaxFeedbackLen {
		return fmt.Errorf("feedback exceeds maximum length of %d bytes", MaxFeedbackLen)
	}
	return nil
}
