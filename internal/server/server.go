package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vitrina-labs/vitrina/internal/auth"
	"github.com/vitrina-labs/vitrina/internal/ingest"
	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/ratelimit"
	catalogsvc "github.com/vitrina-labs/vitrina/internal/service/catalog"
	"github.com/vitrina-labs/vitrina/internal/storage"
)

// Server is the Vitrina HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, MCPServer, UIFS, OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	DB         *storage.DB
	JWTMgr     *auth.JWTManager
	CatalogSvc *catalogsvc.Service
	Buffer     *ingest.Buffer
	Logger     *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  string // comma-separated; empty disables CORS

	// Optional embedded assets.
	UIFS        fs.FS  // Embedded UI filesystem (SPA).
	OpenAPISpec []byte // Embedded OpenAPI YAML.
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		CatalogSvc:          cfg.CatalogSvc,
		Buffer:              cfg.Buffer,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Auth endpoints are keyed by IP; everything else by user when
	// authenticated, falling back to IP for anonymous catalog reads.
	authRL := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, reqIDFunc)
	readRL := ratelimit.Middleware(cfg.Limiter, userKeyFunc, reqIDFunc)
	writeRL := ratelimit.Middleware(cfg.Limiter, userKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Auth endpoints (no auth required, rate limited by IP).
	mux.Handle("POST /auth/signup", authRL(http.HandlerFunc(h.HandleSignup)))
	mux.Handle("POST /auth/token", authRL(http.HandlerFunc(h.HandleAuthToken)))

	// Public catalog reads (rate limited).
	mux.Handle("GET /v1/catalog/agents", readRL(http.HandlerFunc(h.HandleExplore)))
	mux.Handle("GET /v1/catalog/featured", readRL(http.HandlerFunc(h.HandleFeatured)))
	mux.Handle("GET /v1/catalog/agents/{id}", readRL(http.HandlerFunc(h.HandleAgentDetail)))
	mux.Handle("GET /v1/categories", readRL(http.HandlerFunc(h.HandleListCategories)))

	// Dashboard (any authenticated role).
	clientUp := requireRole(model.RoleClient)
	mux.Handle("GET /v1/dashboard", readRL(clientUp(http.HandlerFunc(h.HandleDashboard))))

	// Agent management (creator+; per-agent ownership enforced in handlers).
	creatorUp := requireRole(model.RoleCreator)
	mux.Handle("POST /v1/agents", writeRL(creatorUp(http.HandlerFunc(h.HandleCreateAgent))))
	mux.Handle("PATCH /v1/agents/{id}", writeRL(creatorUp(http.HandlerFunc(h.HandleUpdateAgent))))
	mux.Handle("PUT /v1/agents/{id}/categories", writeRL(creatorUp(http.HandlerFunc(h.HandleSetAgentCategories))))
	mux.Handle("POST /v1/agents/{id}/clone", writeRL(creatorUp(http.HandlerFunc(h.HandleCloneAgent))))

	// Profile administration (admin only).
	adminOnly := requireRole(model.RoleAdmin)
	mux.Handle("PATCH /v1/profiles/{id}/role", writeRL(adminOnly(http.HandlerFunc(h.HandleUpdateProfileRole))))

	// Execution ingestion (any authenticated role, rate limited).
	mux.Handle("POST /v1/agents/{id}/executions", writeRL(clientUp(http.HandlerFunc(h.HandleRecordExecution))))

	// MCP StreamableHTTP transport (auth required).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", clientUp(mcpHTTP))
	}

	// OpenAPI spec (no auth, no rate limit).
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// SPA: serve the embedded UI at the root path.
	// Registered last so all API routes take priority via the mux's longest-match rule.
	if cfg.UIFS != nil {
		mux.Handle("/", newSPAHandler(cfg.UIFS))
		cfg.Logger.Info("ui enabled, serving SPA at /")
	}

	var corsOrigins []string
	if cfg.CORSAllowedOrigins != "" {
		corsOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// userKeyFunc extracts the user ID from the request context for rate limiting.
// Anonymous requests fall back to the client IP. Admins are exempt.
func userKeyFunc(r *http.Request) string {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return "ip:" + ratelimit.IPKeyFunc(r)
	}
	if model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		return ""
	}
	return "user:" + claims.UserID.String()
}

// Handlers returns the underlying Handlers for access to SeedAdmin etc.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
