package model

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExecution(t *testing.T) {
	require.NoError(t, ValidateExecution(AgentExecution{AgentID: uuid.New()}))

	cost := 1.5
	rating := 3.0
	elapsed := int64(200)
	require.NoError(t, ValidateExecution(AgentExecution{
		AgentID:            uuid.New(),
		EstimatedCost:      &cost,
		SatisfactionRating: &rating,
		ExecutionTimeMs:    &elapsed,
	}))

	negCost := -0.01
	lowRating := 0.5
	highRating := 5.5
	negTime := int64(-1)
	longFeedback := strings.Repeat("f", MaxFeedbackLen+1)

	tests := []struct {
		name string
		exec AgentExecution
	}{
		{"missing agent id", AgentExecution{}},
		{"negative cost", AgentExecution{AgentID: uuid.New(), EstimatedCost: &negCost}},
		{"rating below range", AgentExecution{AgentID: uuid.New(), SatisfactionRating: &lowRating}},
		{"rating above range", AgentExecution{AgentID: uuid.New(), SatisfactionRating: &highRating}},
		{"negative duration", AgentExecution{AgentID: uuid.New(), ExecutionTimeMs: &negTime}},
		{"oversized feedback", AgentExecution{AgentID: uuid.New(), Feedback: &longFeedback}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateExecution(tt.exec))
		})
	}
}
