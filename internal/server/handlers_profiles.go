package server

import (
	"errors"
	"net/http"

	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// HandleUpdateProfileRole handles PATCH /v1/profiles/{id}/role. Admin only;
// this is how a client account is promoted to creator. Admins cannot demote
// themselves, so the system always retains at least one admin.
func (h *Handlers) HandleUpdateProfileRole(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid profile id")
		return
	}

	var req model.UpdateProfileRoleRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if !model.ValidRole(req.Role) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "role must be one of admin, creator, client")
		return
	}

	if id == claims.UserID && req.Role != model.RoleAdmin {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "admins cannot demote themselves")
		return
	}

	if err := h.db.UpdateProfileRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "profile not found")
			return
		}
		h.logger.Error("update profile role", "error", err, "profile_id", id)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update role")
		return
	}

	profile, err := h.db.GetProfile(r.Context(), id)
	if err != nil {
		h.logger.Error("update profile role: reload profile", "error", err, "profile_id", id)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update role")
		return
	}

	h.logger.Info("profile role updated",
		"profile_id", id, "role", req.Role, "updated_by", claims.UserID)
	writeJSON(w, r, http.StatusOK, profile)
}
