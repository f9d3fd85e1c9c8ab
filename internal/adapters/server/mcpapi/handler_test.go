package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/evanschultz/scorecard/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubBoardService provides deterministic board responses for MCP tool tests.
type stubBoardService struct {
	state      common.BoardState
	node       common.Node
	connection common.Connection
	advice     common.AdviceResult
	err        error

	lastAdd      common.AddNodeRequest
	lastUpdate   common.UpdateNodeRequest
	lastDelete   common.DeleteNodeRequest
	lastConnect  common.ConnectRequest
	lastQuestion string
	resets       int
	clears       int
}

// GetBoard returns the configured board.
func (s *stubBoardService) GetBoard(context.Context) (common.BoardState, error) {
	return s.state, s.err
}

// AddNode records the request and returns the configured node.
func (s *stubBoardService) AddNode(_ context.Context, in common.AddNodeRequest) (common.Node, error) {
	s.lastAdd = in
	return s.node, s.err
}

// UpdateNode records the request and returns the configured node.
func (s *stubBoardService) UpdateNode(_ context.Context, in common.UpdateNodeRequest) (common.Node, error) {
	s.lastUpdate = in
	return s.node, s.err
}

// DeleteNode records the request.
func (s *stubBoardService) DeleteNode(_ context.Context, in common.DeleteNodeRequest) error {
	s.lastDelete = in
	return s.err
}

// ResizeLane is not exposed over MCP.
func (s *stubBoardService) ResizeLane(context.Context, common.ResizeLaneRequest) (common.Lane, error) {
	return common.Lane{}, s.err
}

// Connect records the request and returns the configured connection.
func (s *stubBoardService) Connect(_ context.Context, in common.ConnectRequest) (common.Connection, error) {
	s.lastConnect = in
	return s.connection, s.err
}

// ClearConnections counts calls and returns the configured board.
func (s *stubBoardService) ClearConnections(context.Context) (common.BoardState, error) {
	s.clears++
	return s.state, s.err
}

// Reset counts calls and returns the configured board.
func (s *stubBoardService) Reset(context.Context) (common.BoardState, error) {
	s.resets++
	return s.state, s.err
}

// Overlay is not exposed over MCP.
func (s *stubBoardService) Overlay(context.Context) (common.Overlay, error) {
	return common.Overlay{}, s.err
}

// Advice records the question and returns the configured result.
func (s *stubBoardService) Advice(_ context.Context, question string) (common.AdviceResult, error) {
	s.lastQuestion = question
	return s.advice, s.err
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "scorecard-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolResultText decodes the first textual content block from a CallToolResult.
func callToolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatalf("result = nil, want non-nil")
	}
	if len(result.Content) == 0 {
		t.Fatalf("result content is empty")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] has unexpected type %T", result.Content[0])
	}
	return text.Text
}

// newTestServer starts one MCP server over board and initializes it.
func newTestServer(t *testing.T, board common.BoardService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, board)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubBoardService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersBoardTools verifies MCP tool discovery lists every board tool.
func TestHandlerRegistersBoardTools(t *testing.T) {
	server := newTestServer(t, &stubBoardService{})
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{
		"scorecard.get_board",
		"scorecard.add_node",
		"scorecard.update_node",
		"scorecard.delete_node",
		"scorecard.connect",
		"scorecard.clear_connections",
		"scorecard.reset",
		"scorecard.advice",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %s: %#v", required, toolNames)
		}
	}
}

// TestHandlerGetBoardToolCall verifies the board is returned as structured content.
func TestHandlerGetBoardToolCall(t *testing.T) {
	board := &stubBoardService{
		state: common.BoardState{
			StateHash: "abc123",
			Lanes:     []common.Lane{{ID: "lane_1", Title: "财务层面"}},
		},
	}
	server := newTestServer(t, board)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "scorecard.get_board", map[string]any{}))
	result := toolResultStructured(t, callResp.Result)
	if got, _ := result["state_hash"].(string); got != "abc123" {
		t.Fatalf("state_hash = %q, want abc123", got)
	}
	lanes, _ := result["lanes"].([]any)
	if len(lanes) != 1 {
		t.Fatalf("lanes = %#v", result["lanes"])
	}
}

// TestHandlerMutationToolCalls verifies mutation tools forward their arguments.
func TestHandlerMutationToolCalls(t *testing.T) {
	board := &stubBoardService{
		node:       common.Node{ID: "cap_1", Text: "提升利润率", Shape: "diamond"},
		connection: common.Connection{ID: "conn_1", FromID: "cap_2", ToID: "cap_1"},
		advice:     common.AdviceResult{Question: "如何提升？"},
	}
	server := newTestServer(t, board)
	client := server.Client()

	_, addResp := postJSONRPC(t, client, server.URL, callToolRequest(2, "scorecard.add_node", map[string]any{"lane_id": "lane_1"}))
	if got, _ := toolResultStructured(t, addResp.Result)["id"].(string); got != "cap_1" {
		t.Fatalf("add_node id = %q, want cap_1", got)
	}
	if board.lastAdd.LaneID != "lane_1" {
		t.Fatalf("lane_id = %q, want lane_1", board.lastAdd.LaneID)
	}

	_, updateResp := postJSONRPC(t, client, server.URL, callToolRequest(3, "scorecard.update_node", map[string]any{
		"node_id": "cap_1",
		"text":    "提升利润率",
		"y":       64,
		"shape":   "diamond",
	}))
	if isError, _ := updateResp.Result["isError"].(bool); isError {
		t.Fatalf("update_node failed: %s", toolResultText(t, updateResp.Result))
	}
	got := board.lastUpdate
	if got.NodeID != "cap_1" || got.Text == nil || *got.Text != "提升利润率" || got.Shape == nil || *got.Shape != "diamond" {
		t.Fatalf("unexpected update request %#v", got)
	}
	if got.Y == nil || *got.Y != 64 || got.X != nil || got.Fill != nil {
		t.Fatalf("unexpected update position/style %#v", got)
	}

	_, connectResp := postJSONRPC(t, client, server.URL, callToolRequest(4, "scorecard.connect", map[string]any{"from_id": "cap_2", "to_id": "cap_1"}))
	if got, _ := toolResultStructured(t, connectResp.Result)["id"].(string); got != "conn_1" {
		t.Fatalf("connect id = %q, want conn_1", got)
	}
	if board.lastConnect != (common.ConnectRequest{FromID: "cap_2", ToID: "cap_1"}) {
		t.Fatalf("unexpected connect request %#v", board.lastConnect)
	}

	_, deleteResp := postJSONRPC(t, client, server.URL, callToolRequest(5, "scorecard.delete_node", map[string]any{"lane_id": "lane_1", "node_id": "cap_1"}))
	if got, _ := toolResultStructured(t, deleteResp.Result)["deleted"].(string); got != "cap_1" {
		t.Fatalf("deleted = %q, want cap_1", got)
	}

	_, _ = postJSONRPC(t, client, server.URL, callToolRequest(6, "scorecard.clear_connections", map[string]any{}))
	_, _ = postJSONRPC(t, client, server.URL, callToolRequest(7, "scorecard.reset", map[string]any{}))
	if board.clears != 1 || board.resets != 1 {
		t.Fatalf("clears=%d resets=%d, want 1 each", board.clears, board.resets)
	}

	_, adviceResp := postJSONRPC(t, client, server.URL, callToolRequest(8, "scorecard.advice", map[string]any{"question": "如何提升？"}))
	if got, _ := toolResultStructured(t, adviceResp.Result)["question"].(string); got != "如何提升？" {
		t.Fatalf("advice question = %q", got)
	}
	if board.lastQuestion != "如何提升？" {
		t.Fatalf("lastQuestion = %q", board.lastQuestion)
	}
}

// TestHandlerToolCallErrorPaths verifies required-arg and mapped-service errors.
func TestHandlerToolCallErrorPaths(t *testing.T) {
	board := &stubBoardService{
		err: errors.Join(common.ErrConflict, errors.New("already linked")),
	}
	server := newTestServer(t, board)

	_, missingArgResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "scorecard.connect", map[string]any{"from_id": "a"}))
	if isError, _ := missingArgResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missingArgResp.Result["isError"])
	}
	if got := toolResultText(t, missingArgResp.Result); !strings.Contains(got, `required argument "to_id" not found`) {
		t.Fatalf("error text = %q, want required to_id message", got)
	}

	_, mappedErrResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "scorecard.connect", map[string]any{
		"from_id": "a",
		"to_id":   "b",
	}))
	if got := toolResultText(t, mappedErrResp.Result); !strings.HasPrefix(got, "conflict:") {
		t.Fatalf("error text = %q, want prefix conflict:", got)
	}

	_, blankIDResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "scorecard.update_node", map[string]any{"text": "x"}))
	if got := toolResultText(t, blankIDResp.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("error text = %q, want prefix invalid_request:", got)
	}

	_, badTypeResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "scorecard.update_node", map[string]any{"node_id": "a", "x": "left"}))
	if got := toolResultText(t, badTypeResp.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("error text = %q, want prefix invalid_request:", got)
	}
}

// TestNewHandlerRequiresBoard verifies board dependency enforcement.
func TestNewHandlerRequiresBoard(t *testing.T) {
	handler, err := NewHandler(Config{}, nil)
	if err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
	if handler != nil {
		t.Fatalf("handler = %#v, want nil", handler)
	}
}

// TestHandlerCustomEndpoint verifies the configured endpoint path is served.
func TestHandlerCustomEndpoint(t *testing.T) {
	handler, err := NewHandler(Config{EndpointPath: "///tools///"}, &stubBoardService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL+"/tools", initializeRequest())

	_, resp := postJSONRPC(t, server.Client(), server.URL+"/tools", map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})
	if _, ok := resp.Result["tools"].([]any); !ok {
		t.Fatalf("tools/list on custom endpoint = %#v", resp.Result)
	}
}

// TestHandlerResizeAndOverlayTools verifies the lane and overlay tools.
func TestHandlerResizeAndOverlayTools(t *testing.T) {
	board := &stubBoardService{}
	server := newTestServer(t, board)

	_, resizeResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "scorecard.resize_lane", map[string]any{"lane_id": "lane_1", "height": 240}))
	if isError, _ := resizeResp.Result["isError"].(bool); isError {
		t.Fatalf("resize_lane isError = true: %#v", resizeResp.Result)
	}
	_, missingResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "scorecard.resize_lane", map[string]any{"lane_id": "lane_1"}))
	if got := toolResultText(t, missingResp.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("error text = %q, want prefix invalid_request:", got)
	}
	_, overlayResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "scorecard.overlay", map[string]any{}))
	if isError, _ := overlayResp.Result["isError"].(bool); isError {
		t.Fatalf("overlay isError = true: %#v", overlayResp.Result)
	}
}

// TestHandlerServeHTTPUnavailable verifies nil handler paths fail closed with 503.
func TestHandlerServeHTTPUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler *Handler
	}{
		{name: "nil receiver", handler: nil},
		{name: "missing streamable server", handler: &Handler{}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
			}
			if !strings.Contains(rec.Body.String(), "mcp handler unavailable") {
				t.Fatalf("body = %q, want mcp handler unavailable", rec.Body.String())
			}
		})
	}
}

// TestToolErrorMapping verifies deterministic error-to-tool-result mapping.
func TestToolErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{name: "nil error", err: nil, wantPrefix: "internal_error: unknown error"},
		{name: "invalid", err: errors.Join(common.ErrInvalidRequest, errors.New("bad")), wantPrefix: "invalid_request:"},
		{name: "not found", err: errors.Join(common.ErrNotFound, errors.New("missing")), wantPrefix: "not_found:"},
		{name: "conflict", err: errors.Join(common.ErrConflict, errors.New("dup")), wantPrefix: "conflict:"},
		{name: "precondition", err: errors.Join(common.ErrPreconditionFailed, errors.New("no step 3")), wantPrefix: "precondition_failed:"},
		{name: "unavailable", err: common.ErrUnavailable, wantPrefix: "service_unavailable:"},
		{name: "internal", err: errors.New("boom"), wantPrefix: "internal_error:"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result := toolError(tt.err)
			if !result.IsError {
				t.Fatalf("IsError = false, want true")
			}
			if got := callToolResultText(t, result); !strings.HasPrefix(got, tt.wantPrefix) {
				t.Fatalf("text = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
