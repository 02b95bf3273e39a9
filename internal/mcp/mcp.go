// Package mcp implements the Model Context Protocol server for Vitrina.
//
// The MCP server exposes the catalog read surface through MCP resources and
// tools, allowing MCP-compatible AI assistants to browse agents, inspect
// their configuration, and read execution metrics.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vitrina-labs/vitrina/internal/catalog"
	catalogsvc "github.com/vitrina-labs/vitrina/internal/service/catalog"
)

// Server wraps the MCP server with Vitrina's catalog service.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	catalogSvc *catalogsvc.Service
	logger     *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(catalogSvc *catalogsvc.Service, version string, logger *slog.Logger) *Server {
	s := &Server{
		catalogSvc: catalogSvc,
		logger:     logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"vitrina",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// vitrina://catalog/featured: the home page strip.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"vitrina://catalog/featured",
			"Featured Agents",
			mcplib.WithResourceDescription("Newest published agents in the catalog"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleFeaturedResource,
	)

	// vitrina://categories: the full category taxonomy.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"vitrina://categories",
			"Categories",
			mcplib.WithResourceDescription("All catalog categories (professions and needs)"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCategoriesResource,
	)
}

func (s *Server) registerTools() {
	// search_agents: the explore listing.
	s.mcpServer.AddTool(
		mcplib.NewTool("search_agents",
			mcplib.WithDescription("Search published agents by name or description, optionally narrowed by category"),
			mcplib.WithString("query", mcplib.Description("Substring to match against agent name and description")),
			mcplib.WithString("category", mcplib.Description("Category id to filter by, or \"all\"")),
			mcplib.WithString("type", mcplib.Description("Category type to filter by: profession, need, or all")),
		),
		s.handleSearchAgents,
	)

	// get_agent: full agent detail.
	s.mcpServer.AddTool(
		mcplib.NewTool("get_agent",
			mcplib.WithDescription("Get the full configuration of one agent: prompt parameters, workflow steps, creator, and categories"),
			mcplib.WithString("id", mcplib.Description("Agent UUID"), mcplib.Required()),
		),
		s.handleGetAgent,
	)

	// list_categories: the taxonomy.
	s.mcpServer.AddTool(
		mcplib.NewTool("list_categories",
			mcplib.WithDescription("List all catalog categories ordered by name"),
		),
		s.handleListCategories,
	)

	// my_metrics: the dashboard aggregation for a user.
	s.mcpServer.AddTool(
		mcplib.NewTool("my_metrics",
			mcplib.WithDescription("Aggregate execution metrics (total executions, total cost, average satisfaction) for a user's agents"),
			mcplib.WithString("user_id", mcplib.Description("Profile UUID"), mcplib.Required()),
		),
		s.handleMyMetrics,
	)
}

func (s *Server) handleFeaturedResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	agents, err := s.catalogSvc.Featured(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: featured: %w", err)
	}

	data, err := json.MarshalIndent(agents, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal featured: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "vitrina://catalog/featured",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCategoriesResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	categories, err := s.catalogSvc.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: categories: %w", err)
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal categories: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "vitrina://categories",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSearchAgents(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	category := request.GetString("category", catalog.All)
	categoryType := request.GetString("type", catalog.All)

	view, err := s.catalogSvc.Explore(ctx, query, category, categoryType)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}

	data, _ := json.Marshal(view.Agents)
	return textResult(string(data)), nil
}

func (s *Server) handleGetAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	idStr := request.GetString("id", "")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return errorResult("id must be a valid UUID"), nil
	}

	detail, err := s.catalogSvc.Detail(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("agent lookup failed: %v", err)), nil
	}

	data, _ := json.Marshal(detail)
	return textResult(string(data)), nil
}

func (s *Server) handleListCategories(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	categories, err := s.catalogSvc.Categories(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("category listing failed: %v", err)), nil
	}

	data, _ := json.Marshal(categories)
	return textResult(string(data)), nil
}

func (s *Server) handleMyMetrics(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	idStr := request.GetString("user_id", "")
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return errorResult("user_id must be a valid UUID"), nil
	}

	view, err := s.catalogSvc.Dashboard(ctx, userID)
	if err != nil {
		return errorResult(fmt.Sprintf("metrics lookup failed: %v", err)), nil
	}

	data, _ := json.Marshal(view.Metrics)
	return textResult(string(data)), nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
