package server

import (
	"errors"
	"net/http"

	"github.com/vitrina-labs/vitrina/internal/catalog"
	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// HandleExplore handles GET /v1/catalog/agents.
// Query params: q (search), category (category id or "all"), type
// (profession|need|all).
func (h *Handlers) HandleExplore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	category := queryOr(r, "category", catalog.All)
	categoryType := queryOr(r, "type", catalog.All)

	if categoryType != catalog.All && !model.ValidCategoryType(model.CategoryType(categoryType)) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "type must be one of profession, need, all")
		return
	}

	view, err := h.catalogSvc.Explore(r.Context(), q, category, categoryType)
	if err != nil {
		h.logger.Error("explore", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load catalog")
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleFeatured handles GET /v1/catalog/featured.
func (h *Handlers) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	agents, err := h.catalogSvc.Featured(r.Context())
	if err != nil {
		h.logger.Error("featured", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load featured agents")
		return
	}
	writeJSON(w, r, http.StatusOK, agents)
}

// HandleAgentDetail handles GET /v1/catalog/agents/{id}.
func (h *Handlers) HandleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	detail, err := h.catalogSvc.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found")
			return
		}
		h.logger.Error("agent detail", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load agent")
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleListCategories handles GET /v1/categories.
func (h *Handlers) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogSvc.Categories(r.Context())
	if err != nil {
		h.logger.Error("list categories", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load categories")
		return
	}
	writeJSON(w, r, http.StatusOK, categories)
}

// HandleDashboard handles GET /v1/dashboard.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	view, err := h.catalogSvc.Dashboard(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "profile not found")
			return
		}
		h.logger.Error("dashboard", "error", err, "user_id", claims.UserID)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load dashboard")
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}
