package server

import (
	"errors"
	"net/http"

	"github.com/vitrina-labs/vitrina/internal/auth"
	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// HandleSignup handles POST /auth/signup. New profiles start as clients.
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if err := model.ValidateEmail(req.Email); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("signup: hash password", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create profile")
		return
	}

	profile, err := h.db.CreateProfile(r.Context(), model.Profile{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         model.RoleClient,
		PasswordHash: hash,
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "email already registered")
			return
		}
		h.logger.Error("signup: create profile", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create profile")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(profile)
	if err != nil {
		h.logger.Error("signup: issue token", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to issue token")
		return
	}

	writeJSON(w, r, http.StatusCreated, model.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   profile,
	})
}

// HandleAuthToken handles POST /auth/token.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	profile, err := h.db.GetProfileByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Burn the same hashing cost as a real verification so response
			// timing does not reveal whether the email exists.
			auth.DummyVerify()
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("auth token: get profile", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "authentication failed")
		return
	}

	valid, err := auth.VerifyPassword(req.Password, profile.PasswordHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(profile)
	if err != nil {
		h.logger.Error("auth token: issue token", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to issue token")
		return
	}

	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   profile,
	})
}
