// Package mcp exposes the tools directory over the Model Context Protocol.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

// Backend is what the MCP tools read from.
type Backend interface {
	Tags() []string
	FetchTools(ctx context.Context, tag string, page, limit int) (*models.Page, error)
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	server     *mcpserver.MCPServer
	logger     *common.Logger
}

// NewHandler creates the MCP handler with the listing tools registered.
func NewHandler(logger *common.Logger, backend Backend, limit int, allLabel string) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"webtools-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(ListTagsTool(), ListTagsHandler(backend, allLabel))
	mcpSrv.AddTool(ListToolsTool(limit), ListToolsHandler(backend, limit, allLabel))
	mcpSrv.AddTool(VersionTool(), VersionToolHandler())

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", 3).Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		server:     mcpSrv,
		logger:     logger,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
