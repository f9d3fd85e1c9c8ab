package common

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/evanschultz/scorecard/internal/app"
	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
)

// newTestAdapter builds an adapter over a deterministic service.
func newTestAdapter(t *testing.T, writer WorkbookWriter) (*AppServiceAdapter, *app.Service) {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc := app.NewService(nil, func() time.Time { return now }, app.ServiceConfig{
		BoardOptions: []board.Option{
			board.WithRandom(func() float64 { return 0 }),
			board.WithConnectionIDGenerator(board.CounterIDs("conn")),
		},
	})
	t.Cleanup(svc.Close)
	adapter := NewAppServiceAdapter(svc, writer)
	adapter.clock = func() time.Time { return now }
	return adapter, svc
}

func ptr[T any](v T) *T {
	return &v
}

// TestBoardHashIgnoresSelection verifies the hash tracks content only.
func TestBoardHashIgnoresSelection(t *testing.T) {
	adapter, svc := newTestAdapter(t, nil)
	ctx := context.Background()

	before, err := adapter.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if len(before.Lanes) != 4 || before.StateHash == "" {
		t.Fatalf("unexpected initial board %#v", before)
	}

	node, err := adapter.AddNode(ctx, AddNodeRequest{LaneID: domain.LaneFinancial})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	added, err := adapter.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if added.StateHash == before.StateHash {
		t.Fatalf("expected hash to change after AddNode")
	}

	svc.Do(func(b *board.Board) { b.SelectNode(node.ID) })
	selected, err := adapter.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if selected.Selected != node.ID {
		t.Fatalf("selected = %q, want %q", selected.Selected, node.ID)
	}
	if selected.StateHash != added.StateHash {
		t.Fatalf("selection changed hash %q -> %q", added.StateHash, selected.StateHash)
	}
}

// TestNodeLifecycle exercises add, update, connect and delete through the adapter.
func TestNodeLifecycle(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)
	ctx := context.Background()

	a, err := adapter.AddNode(ctx, AddNodeRequest{LaneID: domain.LaneFinancial})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	b, err := adapter.AddNode(ctx, AddNodeRequest{LaneID: domain.LaneCustomer})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}

	updated, err := adapter.UpdateNode(ctx, UpdateNodeRequest{
		NodeID: a.ID,
		Text:   ptr("  提升利润率  "),
		Shape:  ptr("diamond"),
		Fill:   ptr("#fde68a"),
	})
	if err != nil {
		t.Fatalf("UpdateNode() error = %v", err)
	}
	if updated.Text != "提升利润率" || updated.Shape != "diamond" || updated.Fill != "#fde68a" {
		t.Fatalf("unexpected updated node %#v", updated)
	}

	conn, err := adapter.Connect(ctx, ConnectRequest{FromID: b.ID, ToID: a.ID})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if conn.FromID != b.ID || conn.ToID != a.ID || conn.ID == "" {
		t.Fatalf("unexpected connection %#v", conn)
	}
	if _, err := adapter.Connect(ctx, ConnectRequest{FromID: a.ID, ToID: b.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("Connect(reverse) error = %v, want ErrConflict", err)
	}

	overlay, err := adapter.Overlay(ctx)
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}
	if len(overlay.Paths) != 1 || overlay.Paths[0].D == "" || overlay.Pending != nil {
		t.Fatalf("unexpected overlay %#v", overlay)
	}
	if overlay.Width <= 0 || overlay.Height <= 0 {
		t.Fatalf("overlay bounds = %vx%v", overlay.Width, overlay.Height)
	}

	if err := adapter.DeleteNode(ctx, DeleteNodeRequest{LaneID: domain.LaneFinancial, NodeID: a.ID}); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	state, err := adapter.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if len(state.Connections) != 0 {
		t.Fatalf("expected connections removed with node, got %#v", state.Connections)
	}
}

// TestResizeClearAndReset verifies lane sizing and whole-board operations.
func TestResizeClearAndReset(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)
	ctx := context.Background()

	lane, err := adapter.ResizeLane(ctx, ResizeLaneRequest{LaneID: domain.LaneProcess, Height: 10})
	if err != nil {
		t.Fatalf("ResizeLane() error = %v", err)
	}
	if lane.Height != domain.MinLaneHeight {
		t.Fatalf("height = %v, want floor %v", lane.Height, domain.MinLaneHeight)
	}

	a, _ := adapter.AddNode(ctx, AddNodeRequest{LaneID: domain.LaneProcess})
	b, _ := adapter.AddNode(ctx, AddNodeRequest{LaneID: domain.LaneLearning})
	if _, err := adapter.Connect(ctx, ConnectRequest{FromID: a.ID, ToID: b.ID}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	cleared, err := adapter.ClearConnections(ctx)
	if err != nil {
		t.Fatalf("ClearConnections() error = %v", err)
	}
	if len(cleared.Connections) != 0 || len(cleared.Lanes[2].Nodes) != 1 {
		t.Fatalf("unexpected cleared board %#v", cleared)
	}

	reset, err := adapter.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	for _, lane := range reset.Lanes {
		if len(lane.Nodes) != 0 || lane.Height != domain.DefaultLaneHeight {
			t.Fatalf("lane %s not reset: %#v", lane.ID, lane)
		}
	}
}

// TestErrorMapping verifies app errors reach transports as common sentinels.
func TestErrorMapping(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "unknown lane",
			run: func() error {
				_, err := adapter.AddNode(ctx, AddNodeRequest{LaneID: "lane_9"})
				return err
			},
			want: ErrNotFound,
		},
		{
			name: "blank lane",
			run: func() error {
				_, err := adapter.AddNode(ctx, AddNodeRequest{LaneID: " "})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "empty patch",
			run: func() error {
				_, err := adapter.UpdateNode(ctx, UpdateNodeRequest{NodeID: "cap_1"})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "missing node",
			run: func() error {
				_, err := adapter.UpdateNode(ctx, UpdateNodeRequest{NodeID: "nope", Text: ptr("x")})
				return err
			},
			want: ErrNotFound,
		},
		{
			name: "bad height",
			run: func() error {
				_, err := adapter.ResizeLane(ctx, ResizeLaneRequest{LaneID: domain.LaneFinancial, Height: -1})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "advice before step 3",
			run: func() error {
				_, err := adapter.Advice(ctx, "")
				return err
			},
			want: ErrPreconditionFailed,
		},
		{
			name: "workbook without writer",
			run: func() error {
				_, err := adapter.ExportWorkbook(ctx)
				return err
			},
			want: ErrUnavailable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestExportWorkbookAndAdvice verifies both Step 3 gated operations once data is loaded.
func TestExportWorkbookAndAdvice(t *testing.T) {
	var gotRows int
	adapter, svc := newTestAdapter(t, func(w io.Writer, plan app.ActionPlan) error {
		gotRows = len(plan.Rows)
		_, err := io.WriteString(w, "xlsx")
		return err
	})
	ctx := context.Background()

	if _, err := adapter.ExportWorkbook(ctx); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("ExportWorkbook() error = %v, want ErrPreconditionFailed", err)
	}

	svc.SetStep3(&domain.Step3Data{
		Matrix: &domain.MatrixData{
			OldClients:  []string{"华东大客户"},
			OldProducts: []string{"标准版"},
			Values:      map[string]float64{"0_0": 500},
		},
	})
	book, err := adapter.ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("ExportWorkbook() error = %v", err)
	}
	if book.Filename != app.ActionPlanFilename(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("filename = %q", book.Filename)
	}
	if string(book.Content) != "xlsx" || gotRows != 1 {
		t.Fatalf("unexpected workbook %q rows=%d", book.Content, gotRows)
	}

	result, err := adapter.Advice(ctx, "如何提升客户满意度？")
	if err != nil {
		t.Fatalf("Advice() error = %v", err)
	}
	if result.Question != "如何提升客户满意度？" || len(result.Request.Messages) != 2 {
		t.Fatalf("unexpected advice %#v", result)
	}
}
