package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evanschultz/scorecard/internal/advice"
	"github.com/evanschultz/scorecard/internal/app"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/evanschultz/scorecard/internal/geometry"
)

// WorkbookWriter renders an action plan as spreadsheet bytes.
type WorkbookWriter func(io.Writer, app.ActionPlan) error

// AppServiceAdapter adapts app.Service to the transport-facing contracts.
type AppServiceAdapter struct {
	service       *app.Service
	writeWorkbook WorkbookWriter
	clock         func() time.Time
}

// NewAppServiceAdapter constructs a transport adapter over the board service.
// writeWorkbook may be nil, in which case ExportWorkbook reports ErrUnavailable.
func NewAppServiceAdapter(service *app.Service, writeWorkbook WorkbookWriter) *AppServiceAdapter {
	return &AppServiceAdapter{
		service:       service,
		writeWorkbook: writeWorkbook,
		clock:         time.Now,
	}
}

// GetBoard returns the full board together with a stable content hash.
func (a *AppServiceAdapter) GetBoard(_ context.Context) (BoardState, error) {
	if a == nil || a.service == nil {
		return BoardState{}, fmt.Errorf("get board: %w", ErrUnavailable)
	}
	return a.boardState(a.service.Board())
}

// AddNode adds a default card to the requested lane.
func (a *AppServiceAdapter) AddNode(_ context.Context, in AddNodeRequest) (Node, error) {
	if a == nil || a.service == nil {
		return Node{}, fmt.Errorf("add node: %w", ErrUnavailable)
	}
	laneID := strings.TrimSpace(in.LaneID)
	if laneID == "" {
		return Node{}, fmt.Errorf("lane_id is required: %w", ErrInvalidRequest)
	}
	node, err := a.service.AddNode(laneID)
	if err != nil {
		return Node{}, mapAppError("add node", err)
	}
	return mapNode(node), nil
}

// UpdateNode applies a partial card update.
func (a *AppServiceAdapter) UpdateNode(_ context.Context, in UpdateNodeRequest) (Node, error) {
	if a == nil || a.service == nil {
		return Node{}, fmt.Errorf("update node: %w", ErrUnavailable)
	}
	nodeID := strings.TrimSpace(in.NodeID)
	if nodeID == "" {
		return Node{}, fmt.Errorf("node_id is required: %w", ErrInvalidRequest)
	}
	if in.Text == nil && in.X == nil && in.Y == nil && in.Shape == nil && in.Fill == nil && in.Border == nil {
		return Node{}, fmt.Errorf("at least one field must be set: %w", ErrInvalidRequest)
	}
	node, err := a.service.UpdateNode(nodeID, app.NodePatch{
		Text:   in.Text,
		X:      in.X,
		Y:      in.Y,
		Shape:  in.Shape,
		Fill:   in.Fill,
		Border: in.Border,
	})
	if err != nil {
		return Node{}, mapAppError("update node", err)
	}
	return mapNode(node), nil
}

// DeleteNode removes one card and every connection touching it.
func (a *AppServiceAdapter) DeleteNode(_ context.Context, in DeleteNodeRequest) error {
	if a == nil || a.service == nil {
		return fmt.Errorf("delete node: %w", ErrUnavailable)
	}
	laneID := strings.TrimSpace(in.LaneID)
	nodeID := strings.TrimSpace(in.NodeID)
	if laneID == "" || nodeID == "" {
		return fmt.Errorf("lane_id and node_id are required: %w", ErrInvalidRequest)
	}
	return mapAppError("delete node", a.service.DeleteNode(laneID, nodeID))
}

// ResizeLane sets one lane height.
func (a *AppServiceAdapter) ResizeLane(_ context.Context, in ResizeLaneRequest) (Lane, error) {
	if a == nil || a.service == nil {
		return Lane{}, fmt.Errorf("resize lane: %w", ErrUnavailable)
	}
	laneID := strings.TrimSpace(in.LaneID)
	if laneID == "" {
		return Lane{}, fmt.Errorf("lane_id is required: %w", ErrInvalidRequest)
	}
	if in.Height <= 0 {
		return Lane{}, fmt.Errorf("height must be > 0: %w", ErrInvalidRequest)
	}
	lane, err := a.service.ResizeLane(laneID, in.Height)
	if err != nil {
		return Lane{}, mapAppError("resize lane", err)
	}
	return mapLane(lane), nil
}

// Connect links two cards.
func (a *AppServiceAdapter) Connect(_ context.Context, in ConnectRequest) (Connection, error) {
	if a == nil || a.service == nil {
		return Connection{}, fmt.Errorf("connect: %w", ErrUnavailable)
	}
	from := strings.TrimSpace(in.FromID)
	to := strings.TrimSpace(in.ToID)
	if from == "" || to == "" {
		return Connection{}, fmt.Errorf("from_id and to_id are required: %w", ErrInvalidRequest)
	}
	conn, err := a.service.Connect(from, to)
	if err != nil {
		return Connection{}, mapAppError("connect", err)
	}
	return mapConnection(conn), nil
}

// ClearConnections removes every link and returns the resulting board.
func (a *AppServiceAdapter) ClearConnections(_ context.Context) (BoardState, error) {
	if a == nil || a.service == nil {
		return BoardState{}, fmt.Errorf("clear connections: %w", ErrUnavailable)
	}
	a.service.ClearConnections()
	return a.boardState(a.service.Board())
}

// Reset restores the default board and returns it.
func (a *AppServiceAdapter) Reset(_ context.Context) (BoardState, error) {
	if a == nil || a.service == nil {
		return BoardState{}, fmt.Errorf("reset: %w", ErrUnavailable)
	}
	a.service.Reset()
	return a.boardState(a.service.Board())
}

// Overlay returns the connector geometry for the current board.
func (a *AppServiceAdapter) Overlay(_ context.Context) (Overlay, error) {
	if a == nil || a.service == nil {
		return Overlay{}, fmt.Errorf("overlay: %w", ErrUnavailable)
	}
	scene := a.service.Scene()
	out := Overlay{
		Width:  scene.Layout.Width,
		Height: scene.Layout.Height,
		Paths:  make([]OverlayPath, 0, len(scene.Paths)),
	}
	for _, path := range scene.Paths {
		out.Paths = append(out.Paths, mapPath(path))
	}
	if scene.Pending != nil {
		pending := mapPath(*scene.Pending)
		out.Pending = &pending
	}
	return out, nil
}

// Advice builds a chat request. A blank question analyzes the whole board.
func (a *AppServiceAdapter) Advice(_ context.Context, question string) (AdviceResult, error) {
	if a == nil || a.service == nil {
		return AdviceResult{}, fmt.Errorf("advice: %w", ErrUnavailable)
	}
	req, err := a.service.Advice(question)
	if err != nil {
		return AdviceResult{}, mapAppError("advice", err)
	}
	return AdviceResult{
		Question: req.Question(),
		Request:  req,
	}, nil
}

// ExportWorkbook renders the action-plan workbook for the current board.
func (a *AppServiceAdapter) ExportWorkbook(_ context.Context) (Workbook, error) {
	if a == nil || a.service == nil || a.writeWorkbook == nil {
		return Workbook{}, fmt.Errorf("export workbook: %w", ErrUnavailable)
	}
	plan, err := a.service.ActionPlan()
	if err != nil {
		return Workbook{}, mapAppError("export workbook", err)
	}
	var buf bytes.Buffer
	if err := a.writeWorkbook(&buf, plan); err != nil {
		return Workbook{}, fmt.Errorf("export workbook: %w", err)
	}
	return Workbook{
		Filename: plan.Filename,
		Content:  buf.Bytes(),
	}, nil
}

// boardState converts a board view into its transport form.
func (a *AppServiceAdapter) boardState(view app.BoardView) (BoardState, error) {
	out := BoardState{
		CapturedAt:   a.clock().UTC(),
		Lanes:        make([]Lane, 0, len(view.Lanes)),
		Connections:  make([]Connection, 0, len(view.Connections)),
		Selected:     view.Selected,
		ConnectMode:  view.ConnectMode,
		PendingStart: view.PendingStart,
		Locked:       view.Locked,
	}
	for _, lane := range view.Lanes {
		out.Lanes = append(out.Lanes, mapLane(lane))
	}
	for _, conn := range view.Connections {
		out.Connections = append(out.Connections, mapConnection(conn))
	}
	hash, err := computeBoardHash(out)
	if err != nil {
		return BoardState{}, fmt.Errorf("hash board state: %w", err)
	}
	out.StateHash = hash
	return out, nil
}

// computeBoardHash hashes the persistent part of the board. Selection, pending
// links and the capture time are left out so idle reads hash the same.
func computeBoardHash(state BoardState) (string, error) {
	payload := struct {
		Lanes       []Lane       `json:"lanes"`
		Connections []Connection `json:"connections"`
		Locked      bool         `json:"locked"`
	}{
		Lanes:       state.Lanes,
		Connections: state.Connections,
		Locked:      state.Locked,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// mapNode converts a domain node.
func mapNode(node domain.Node) Node {
	return Node{
		ID:     node.ID,
		Text:   node.Text,
		X:      node.X,
		Y:      node.Y,
		Shape:  string(node.Shape),
		Fill:   node.Fill,
		Border: node.Border,
	}
}

// mapLane converts a domain lane with its nodes.
func mapLane(lane domain.Lane) Lane {
	out := Lane{
		ID:         lane.ID,
		Title:      lane.Title,
		ColorClass: lane.ColorClass,
		Height:     lane.Height,
		Nodes:      make([]Node, 0, len(lane.Nodes)),
	}
	for _, node := range lane.Nodes {
		out.Nodes = append(out.Nodes, mapNode(node))
	}
	return out
}

// mapConnection converts a domain connection.
func mapConnection(conn domain.Connection) Connection {
	return Connection{
		ID:     conn.ID,
		FromID: conn.From,
		ToID:   conn.To,
	}
}

// mapPath converts one rendered connector.
func mapPath(path geometry.Path) OverlayPath {
	out := OverlayPath{
		ConnectionID: path.ConnectionID,
		FromID:       path.From,
		ToID:         path.To,
		D:            path.D(),
		Dashed:       path.Dashed,
	}
	for i, pt := range path.Arrow {
		out.Arrow[i] = Point{X: pt.X, Y: pt.Y}
	}
	return out
}

// mapAppError maps app and domain errors into transport-facing sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound),
		errors.Is(err, app.ErrUnknownLane):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrDuplicateLink):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, app.ErrMatrixRequired),
		errors.Is(err, advice.ErrStepsIncomplete):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrPreconditionFailed, err))
	case errors.Is(err, app.ErrNoRepository):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnavailable, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidText),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidShape),
		errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, domain.ErrInvalidLaneID),
		errors.Is(err, domain.ErrInvalidHeight),
		errors.Is(err, domain.ErrInvalidConnection),
		errors.Is(err, app.ErrInvalidPatch),
		errors.Is(err, app.ErrInvalidName),
		errors.Is(err, app.ErrInvalidSnapshot),
		errors.Is(err, advice.ErrEmptyQuestion):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
