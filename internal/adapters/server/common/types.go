// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/evanschultz/scorecard/internal/advice"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing lanes, nodes or snapshots.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a request that clashes with existing board state.
var ErrConflict = errors.New("conflict")

// ErrPreconditionFailed reports an operation that needs Step 3 data first.
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrUnavailable reports a surface whose backing service is not configured.
var ErrUnavailable = errors.New("service unavailable")

// Point is one board coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is the transport form of one card.
type Node struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Shape  string  `json:"shape"`
	Fill   string  `json:"fill_color"`
	Border string  `json:"border_color"`
}

// Lane is the transport form of one swim lane.
type Lane struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ColorClass string  `json:"color_class"`
	Height     float64 `json:"height"`
	Nodes      []Node  `json:"nodes"`
}

// Connection is the transport form of one directed link.
type Connection struct {
	ID     string `json:"id"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// BoardState is the full board as served to clients. StateHash changes only
// when lanes, nodes, connections or the lock flag change.
type BoardState struct {
	CapturedAt   time.Time    `json:"captured_at"`
	StateHash    string       `json:"state_hash"`
	Lanes        []Lane       `json:"lanes"`
	Connections  []Connection `json:"connections"`
	Selected     string       `json:"selected,omitempty"`
	ConnectMode  bool         `json:"connect_mode"`
	PendingStart string       `json:"pending_start,omitempty"`
	Locked       bool         `json:"locked"`
}

// OverlayPath is one rendered connector.
type OverlayPath struct {
	ConnectionID string   `json:"connection_id,omitempty"`
	FromID       string   `json:"from_id"`
	ToID         string   `json:"to_id,omitempty"`
	D            string   `json:"d"`
	Arrow        [3]Point `json:"arrow"`
	Dashed       bool     `json:"dashed"`
}

// Overlay is the connector geometry for the current board.
type Overlay struct {
	Width   float64       `json:"width"`
	Height  float64       `json:"height"`
	Paths   []OverlayPath `json:"paths"`
	Pending *OverlayPath  `json:"pending,omitempty"`
}

// AdviceResult is one built chat request.
type AdviceResult struct {
	Question string             `json:"question"`
	Request  advice.ChatRequest `json:"request"`
}

// AddNodeRequest adds a default card to a lane.
type AddNodeRequest struct {
	LaneID string `json:"lane_id"`
}

// DeleteNodeRequest removes one card.
type DeleteNodeRequest struct {
	LaneID string `json:"lane_id"`
	NodeID string `json:"node_id"`
}

// UpdateNodeRequest patches one card. Nil fields are left unchanged.
type UpdateNodeRequest struct {
	NodeID string   `json:"node_id"`
	Text   *string  `json:"text,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Shape  *string  `json:"shape,omitempty"`
	Fill   *string  `json:"fill_color,omitempty"`
	Border *string  `json:"border_color,omitempty"`
}

// ResizeLaneRequest sets one lane height.
type ResizeLaneRequest struct {
	LaneID string  `json:"lane_id"`
	Height float64 `json:"height"`
}

// ConnectRequest links two cards.
type ConnectRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// BoardService is the board surface shared by the REST and MCP transports.
type BoardService interface {
	GetBoard(context.Context) (BoardState, error)
	AddNode(context.Context, AddNodeRequest) (Node, error)
	UpdateNode(context.Context, UpdateNodeRequest) (Node, error)
	DeleteNode(context.Context, DeleteNodeRequest) error
	ResizeLane(context.Context, ResizeLaneRequest) (Lane, error)
	Connect(context.Context, ConnectRequest) (Connection, error)
	ClearConnections(context.Context) (BoardState, error)
	Reset(context.Context) (BoardState, error)
	Overlay(context.Context) (Overlay, error)
	Advice(ctx context.Context, question string) (AdviceResult, error)
}

// Workbook is one rendered action-plan spreadsheet.
type Workbook struct {
	Filename string
	Content  []byte
}

// WorkbookExporter renders the action-plan workbook.
type WorkbookExporter interface {
	ExportWorkbook(context.Context) (Workbook, error)
}
