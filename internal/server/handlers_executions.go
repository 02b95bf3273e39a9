package server

import (
	"errors"
	"net/http"

	"github.com/vitrina-labs/vitrina/internal/ingest"
	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// HandleRecordExecution handles POST /v1/agents/{id}/executions.
// The record goes through the ingest buffer; a 202 means it is queued for the
// next batch flush, not yet durably stored.
func (h *Handlers) HandleRecordExecution(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	agentID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	var req model.RecordExecutionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if _, err := h.db.GetAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found")
			return
		}
		h.logger.Error("record execution: load agent", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to record execution")
		return
	}

	exec := model.AgentExecution{
		AgentID:            agentID,
		EstimatedCost:      req.EstimatedCost,
		SatisfactionRating: req.SatisfactionRating,
		ExecutionTimeMs:    req.ExecutionTimeMs,
		Feedback:           req.Feedback,
		InputData:          req.InputData,
		OutputData:         req.OutputData,
	}
	if claims != nil {
		uid := claims.UserID
		exec.UserID = &uid
	}

	if err := model.ValidateExecution(exec); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	queued, err := h.buffer.Append(exec)
	if err != nil {
		if errors.Is(err, ingest.ErrBufferFull) {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "ingestion buffer full, retry later")
			return
		}
		h.logger.Error("record execution: append", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to record execution")
		return
	}

	writeJSON(w, r, http.StatusAccepted, queued)
}
