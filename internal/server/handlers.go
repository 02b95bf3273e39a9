package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vitrina-labs/vitrina/internal/auth"
	"github.com/vitrina-labs/vitrina/internal/ingest"
	"github.com/vitrina-labs/vitrina/internal/model"
	catalogsvc "github.com/vitrina-labs/vitrina/internal/service/catalog"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// bufferWarnCapacity is the depth at which the health endpoint reports the
// ingest buffer as degraded. Matches the hard cap in the ingest package.
const bufferWarnCapacity = 100_000

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	catalogSvc          *catalogsvc.Service
	buffer              *ingest.Buffer
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openapiSpec         []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Buffer, OpenAPISpec.
type HandlersDeps struct {
	DB                  *storage.DB
	JWTMgr              *auth.JWTManager
	CatalogSvc          *catalogsvc.Service
	Buffer              *ingest.Buffer
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		catalogSvc:          d.CatalogSvc,
		buffer:              d.Buffer,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openapiSpec:         d.OpenAPISpec,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	// Buffer health: >50% capacity = high, >75% capacity = critical.
	bufDepth := 0
	bufStatus := "ok"
	if h.buffer != nil {
		bufDepth = h.buffer.Len()
		if bufDepth > bufferWarnCapacity*3/4 {
			bufStatus = "critical"
			if status == "healthy" {
				status = "degraded"
			}
		} else if bufDepth > bufferWarnCapacity/2 {
			bufStatus = "high"
		}
	}

	resp := model.HealthResponse{
		Status:       status,
		Version:      h.version,
		Postgres:     pgStatus,
		BufferDepth:  bufDepth,
		BufferStatus: bufStatus,
		Uptime:       int64(time.Since(h.startedAt).Seconds()),
	}

	writeJSON(w, r, httpStatus, resp)
}

// HandleOpenAPISpec handles GET /openapi.yaml.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

// SeedAdmin ensures an admin profile exists when credentials are configured.
// With no credentials and an empty profiles table, startup fails so a fresh
// deployment is never left without any way to administer it.
func (h *Handlers) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		total, err := h.db.CountProfiles(ctx)
		if err != nil {
			return fmt.Errorf("seed admin: count profiles: %w", err)
		}
		if total == 0 {
			return fmt.Errorf("seed admin: VITRINA_ADMIN_EMAIL/VITRINA_ADMIN_PASSWORD are empty and no profiles exist; set them to bootstrap initial admin access")
		}
		h.logger.Info("no admin credentials configured, skipping admin seed", "existing_profiles", total)
		return nil
	}

	if _, err := h.db.GetProfileByEmail(ctx, email); err == nil {
		h.logger.Info("admin profile already exists, skipping admin seed")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed admin: hash password: %w", err)
	}

	fullName := "System Admin"
	_, err = h.db.CreateProfile(ctx, model.Profile{
		Email:        email,
		FullName:     &fullName,
		Role:         model.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("seed admin: create profile: %w", err)
	}

	h.logger.Info("seeded initial admin profile")
	return nil
}

// pathUUID parses the {id} path value as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// queryOr returns the named query parameter or defaultVal when absent.
func queryOr(r *http.Request, name, defaultVal string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return defaultVal
}
