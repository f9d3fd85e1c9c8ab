// Package mcpapi exposes the board as MCP tools over stateless streamable HTTP.
package mcpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/scorecard/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler serves the MCP endpoint.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
}

// NewHandler registers every board tool on a fresh MCP server.
func NewHandler(cfg Config, board common.BoardService) (*Handler, error) {
	if board == nil {
		return nil, errors.New("board service is required")
	}
	name := orDefault(cfg.ServerName, "scorecard")
	version := orDefault(cfg.ServerVersion, "dev")
	endpoint := "/" + strings.Trim(orDefault(cfg.EndpointPath, "/mcp"), "/")

	srv := mcpserver.NewMCPServer(name, version, mcpserver.WithToolCapabilities(false))
	registerReadTools(srv, board)
	registerBoardTools(srv, board)

	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(
			srv,
			mcpserver.WithEndpointPath(endpoint),
			mcpserver.WithStateLess(true),
		),
	}, nil
}

// ServeHTTP handles one MCP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.streamable == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.streamable.ServeHTTP(w, r)
}

// errorCodes maps transport sentinels to the prefix agents match on.
var errorCodes = []struct {
	target error
	code   string
}{
	{common.ErrInvalidRequest, "invalid_request"},
	{common.ErrNotFound, "not_found"},
	{common.ErrConflict, "conflict"},
	{common.ErrPreconditionFailed, "precondition_failed"},
	{common.ErrUnavailable, "service_unavailable"},
}

// toolError renders err as a tool-level failure the caller can read.
func toolError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("internal_error: unknown error")
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			return mcp.NewToolResultError(ec.code + ": " + err.Error())
		}
	}
	return mcp.NewToolResultError("internal_error: " + err.Error())
}

// jsonResult turns one service call into a structured tool result.
// Service errors become tool errors; only encoding failures are protocol errors.
func jsonResult[T any](tool string, v T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolError(err), nil
	}
	result, encErr := mcp.NewToolResultJSON(v)
	if encErr != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, encErr)
	}
	return result, nil
}

// argError reports a missing or malformed argument.
func argError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("invalid_request: malformed arguments")
	}
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
