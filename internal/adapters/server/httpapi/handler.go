// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/scorecard/internal/adapters/server/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// xlsxContentType is the media type of exported workbooks.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Logger is the request log sink.
type Logger interface {
	Info(msg string, keyvals ...any)
}

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	board     common.BoardService
	workbooks common.WorkbookExporter
	logger    Logger
	router    chi.Router
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter. workbooks and logger may be nil.
func NewHandler(board common.BoardService, workbooks common.WorkbookExporter, logger Logger) *Handler {
	h := &Handler{
		board:     board,
		workbooks: workbooks,
		logger:    logger,
	}
	h.router = h.routes()
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes builds the chi router for every board endpoint.
func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireBoard)

		r.Get("/board", h.handleGetBoard)
		r.Get("/overlay", h.handleOverlay)
		r.Get("/advice", h.handleAdvice)
		r.Post("/reset", h.handleReset)

		r.Route("/lanes/{laneID}", func(r chi.Router) {
			r.Post("/nodes", h.handleAddNode)
			r.Delete("/nodes/{nodeID}", h.handleDeleteNode)
			r.Put("/height", h.handleResizeLane)
		})
		r.Patch("/nodes/{nodeID}", h.handleUpdateNode)

		r.Post("/connections", h.handleConnect)
		r.Delete("/connections", h.handleClearConnections)
	})
	r.Get("/export.xlsx", h.handleExportWorkbook)
	return r
}

// logRequests writes one log line per request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.logger == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireBoard rejects board routes when no board service is configured.
func (h *Handler) requireBoard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.board == nil {
			writeJSONError(w, http.StatusServiceUnavailable, APIError{
				Code:    "service_unavailable",
				Message: "board service is not configured",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleGetBoard serves GET `/board`.
func (h *Handler) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	state, err := h.board.GetBoard(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleOverlay serves GET `/overlay`.
func (h *Handler) handleOverlay(w http.ResponseWriter, r *http.Request) {
	overlay, err := h.board.Overlay(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overlay)
}

// handleAdvice serves GET `/advice?question=`. A blank question analyzes the board.
func (h *Handler) handleAdvice(w http.ResponseWriter, r *http.Request) {
	result, err := h.board.Advice(r.Context(), strings.TrimSpace(r.URL.Query().Get("question")))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReset serves POST `/reset`.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := h.board.Reset(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleAddNode serves POST `/lanes/{laneID}/nodes`.
func (h *Handler) handleAddNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.board.AddNode(r.Context(), common.AddNodeRequest{
		LaneID: chi.URLParam(r, "laneID"),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// handleDeleteNode serves DELETE `/lanes/{laneID}/nodes/{nodeID}`.
func (h *Handler) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	err := h.board.DeleteNode(r.Context(), common.DeleteNodeRequest{
		LaneID: chi.URLParam(r, "laneID"),
		NodeID: chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResizeLane serves PUT `/lanes/{laneID}/height`.
func (h *Handler) handleResizeLane(w http.ResponseWriter, r *http.Request) {
	var req common.ResizeLaneRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.LaneID = chi.URLParam(r, "laneID")
	lane, err := h.board.ResizeLane(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lane)
}

// handleUpdateNode serves PATCH `/nodes/{nodeID}`.
func (h *Handler) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req common.UpdateNodeRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.NodeID = chi.URLParam(r, "nodeID")
	node, err := h.board.UpdateNode(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// handleConnect serves POST `/connections`.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req common.ConnectRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	conn, err := h.board.Connect(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// handleClearConnections serves DELETE `/connections`.
func (h *Handler) handleClearConnections(w http.ResponseWriter, r *http.Request) {
	state, err := h.board.ClearConnections(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleExportWorkbook serves GET `/export.xlsx`.
func (h *Handler) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	if h.workbooks == nil {
		writeJSONError(w, http.StatusNotImplemented, APIError{
			Code:    "not_implemented",
			Message: "workbook export is not available",
		})
		return
	}
	book, err := h.workbooks.ExportWorkbook(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": book.Filename,
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(book.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(book.Content)
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrPreconditionFailed):
		writeJSONError(w, http.StatusPreconditionFailed, APIError{
			Code:    "precondition_failed",
			Message: err.Error(),
			Hint:    "Load a Step 3 result file before exporting or asking for advice.",
		})
	case errors.Is(err, common.ErrUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
