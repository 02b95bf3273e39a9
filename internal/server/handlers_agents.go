package server

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vitrina-labs/vitrina/internal/auth"
	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// HandleCreateAgent handles POST /v1/agents (creator+).
func (h *Handlers) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.CreateAgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	status := req.Status
	if status == "" {
		status = model.StatusDraft
	}

	agent := model.Agent{
		Name:          req.Name,
		Description:   req.Description,
		Tags:          req.Tags,
		Status:        status,
		LLMProvider:   req.LLMProvider,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		MaxTokens:     req.MaxTokens,
		SystemPrompt:  req.SystemPrompt,
		WorkflowSteps: req.WorkflowSteps,
		Language:      req.Language,
		Version:       1,
		CreatorID:     claims.UserID,
		CollectionID:  req.CollectionID,
	}

	if err := model.ValidateAgent(agent); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	created, err := h.db.CreateAgent(r.Context(), agent, req.CategoryIDs)
	if err != nil {
		if isForeignKeyError(err) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "unknown collection or category id")
			return
		}
		h.logger.Error("create agent", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create agent")
		return
	}

	writeJSON(w, r, http.StatusCreated, created)
}

// HandleUpdateAgent handles PATCH /v1/agents/{id} (owner or admin).
// Only fields present in the request are applied; each update bumps version.
func (h *Handlers) HandleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	var req model.UpdateAgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	agent, err := h.db.GetAgent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found")
			return
		}
		h.logger.Error("update agent: load", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update agent")
		return
	}

	if !h.canMutate(claims, agent) {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "not the agent's creator")
		return
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Tags != nil {
		agent.Tags = *req.Tags
	}
	if req.Status != nil {
		agent.Status = *req.Status
	}
	if req.LLMProvider != nil {
		agent.LLMProvider = req.LLMProvider
	}
	if req.Temperature != nil {
		agent.Temperature = req.Temperature
	}
	if req.TopP != nil {
		agent.TopP = req.TopP
	}
	if req.MaxTokens != nil {
		agent.MaxTokens = req.MaxTokens
	}
	if req.SystemPrompt != nil {
		agent.SystemPrompt = req.SystemPrompt
	}
	if req.WorkflowSteps != nil {
		agent.WorkflowSteps = *req.WorkflowSteps
	}
	if req.Language != nil {
		agent.Language = req.Language
	}
	if req.CollectionID != nil {
		agent.CollectionID = req.CollectionID
	}
	agent.Version++

	if err := model.ValidateAgent(agent); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	updated, err := h.db.UpdateAgent(r.Context(), agent)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found")
			return
		}
		h.logger.Error("update agent", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update agent")
		return
	}

	writeJSON(w, r, http.StatusOK, updated)
}

// HandleSetAgentCategories handles PUT /v1/agents/{id}/categories (owner or admin).
func (h *Handlers) HandleSetAgentCategories(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	var req model.SetAgentCategoriesRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	agent, err := h.db.GetAgent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found")
			return
		}
		h.logger.Error("set agent categories: load", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update categories")
		return
	}

	if !h.canMutate(claims, agent) {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "not the agent's creator")
		return
	}

	if err := h.db.SetAgentCategories(r.Context(), id, req.CategoryIDs); err != nil {
		if isForeignKeyError(err) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "unknown category id")
			return
		}
		h.logger.Error("set agent categories", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update categories")
		return
	}

	writeJSON(w, r, http.StatusOK, model.SetAgentCategoriesRequest{CategoryIDs: req.CategoryIDs})
}

// HandleCloneAgent handles POST /v1/agents/{id}/clone (creator+).
// Only published agents may be cloned, except by their own creator or an admin.
func (h *Handlers) HandleCloneAgent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	var req model.CloneAgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	source, err := h.db.GetAgent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found")
			return
		}
		h.logger.Error("clone agent: load", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to clone agent")
		return
	}

	if source.Status != model.StatusPublished && !h.canMutate(claims, source) {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "only published agents can be cloned")
		return
	}

	name := source.Name + " (copy)"
	if req.Name != nil {
		name = *req.Name
	}
	if err := model.ValidateAgentName(name); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	clone, err := h.db.CloneAgent(r.Context(), id, claims.UserID, name)
	if err != nil {
		h.logger.Error("clone agent", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to clone agent")
		return
	}

	writeJSON(w, r, http.StatusCreated, clone)
}

// canMutate reports whether the caller may modify the given agent.
func (h *Handlers) canMutate(claims *auth.Claims, agent model.Agent) bool {
	if claims == nil {
		return false
	}
	if model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		return true
	}
	return claims.UserID == agent.CreatorID
}

// isDuplicateKeyError checks if a Postgres error is a unique_violation (23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyError checks if a Postgres error is a foreign_key_violation (23503).
func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
