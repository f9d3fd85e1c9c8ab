// Package server mounts the board REST API and MCP endpoint on one listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/scorecard/internal/adapters/server/common"
	"github.com/evanschultz/scorecard/internal/adapters/server/httpapi"
	"github.com/evanschultz/scorecard/internal/adapters/server/mcpapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultBindAddress   = "127.0.0.1:5437"
	defaultAPIEndpoint   = "/api/v1"
	defaultMCPEndpoint   = "/mcp"
	shutdownGrace        = 5 * time.Second
	readHeaderTimeout    = 10 * time.Second
	readinessCheckBudget = 2 * time.Second
)

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Logger is the runtime log sink used for request and lifecycle lines.
type Logger interface {
	Info(msg string, keyvals ...any)
}

// Dependencies are the board-facing adapters behind both transports.
type Dependencies struct {
	Board     common.BoardService
	Workbooks common.WorkbookExporter
	Logger    Logger
}

// NewHandler builds the root router and returns the normalized config it used.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Board == nil {
		return nil, Config{}, errors.New("board dependency is required")
	}

	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Board)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	var apiLogger httpapi.Logger
	if deps.Logger != nil {
		apiLogger = deps.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.CleanPath)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/readyz", readiness(deps.Board))
	r.Mount(cfg.APIEndpoint, httpapi.NewHandler(deps.Board, deps.Workbooks, apiLogger))
	r.Handle(cfg.MCPEndpoint, mcpHandler)
	return r, cfg, nil
}

// Run listens on cfg.HTTPBind and serves until ctx is cancelled.
// Bind failures are returned before any request is accepted.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPBind, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	logInfo(deps.Logger, "serving", "addr", ln.Addr().String(), "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve after shutdown: %w", err)
	}
	if shutdownErr != nil {
		return fmt.Errorf("shutdown server: %w", shutdownErr)
	}
	logInfo(deps.Logger, "server stopped", "addr", ln.Addr().String())
	return nil
}

// readiness reports ok once the board answers a read.
func readiness(board common.BoardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessCheckBudget)
		defer cancel()
		state, err := board.GetBoard(ctx)
		if err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok", "lanes": len(state.Lanes)})
	}
}

// normalizeConfig fills defaults and rejects colliding endpoints.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = orDefault(cfg.HTTPBind, defaultBindAddress)
	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, defaultAPIEndpoint)
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, defaultMCPEndpoint)
	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints must differ (both %q)", cfg.APIEndpoint)
	}
	cfg.ServerName = orDefault(cfg.ServerName, "scorecard")
	cfg.ServerVersion = orDefault(cfg.ServerVersion, "dev")
	return cfg, nil
}

// normalizeEndpoint returns path as one leading-slash segment list, or fallback when empty.
func normalizeEndpoint(path, fallback string) string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return fallback
	}
	return "/" + trimmed
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func logInfo(logger Logger, msg string, keyvals ...any) {
	if logger != nil {
		logger.Info(msg, keyvals...)
	}
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
