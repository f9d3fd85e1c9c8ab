package app

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
)

type fakeRepo struct {
	snapshots map[string]Snapshot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{snapshots: map[string]Snapshot{}}
}

func (f *fakeRepo) SaveSnapshot(_ context.Context, snap Snapshot) error {
	f.snapshots[snap.Name] = snap
	return nil
}

func (f *fakeRepo) GetSnapshot(_ context.Context, name string) (Snapshot, error) {
	snap, ok := f.snapshots[name]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (f *fakeRepo) ListSnapshots(_ context.Context) ([]SnapshotInfo, error) {
	out := make([]SnapshotInfo, 0, len(f.snapshots))
	for _, snap := range f.snapshots {
		out = append(out, snap.Info())
	}
	slices.SortFunc(out, func(a, b SnapshotInfo) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (f *fakeRepo) DeleteSnapshot(_ context.Context, name string) error {
	if _, ok := f.snapshots[name]; !ok {
		return ErrNotFound
	}
	delete(f.snapshots, name)
	return nil
}

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// newTestService builds a service with deterministic placement and ids.
func newTestService(repo Repository) *Service {
	return NewService(repo, func() time.Time { return testNow }, ServiceConfig{
		BoardOptions: []board.Option{
			board.WithRandom(func() float64 { return 0 }),
			board.WithConnectionIDGenerator(board.CounterIDs("conn")),
		},
	})
}

func TestServiceAddAndDeleteNode(t *testing.T) {
	svc := newTestService(nil)
	node, err := svc.AddNode(domain.LaneFinancial)
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if node.Text != domain.DefaultNodeText {
		t.Fatalf("text = %q", node.Text)
	}
	if _, err := svc.AddNode("lane_9"); !errors.Is(err, ErrUnknownLane) {
		t.Fatalf("AddNode(unknown) error = %v, want ErrUnknownLane", err)
	}
	if err := svc.DeleteNode(domain.LaneFinancial, node.ID); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if err := svc.DeleteNode(domain.LaneFinancial, node.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteNode() error = %v, want ErrNotFound", err)
	}
}

func TestServiceUpdateNodeValidatesWholePatch(t *testing.T) {
	svc := newTestService(nil)
	node, _ := svc.AddNode(domain.LaneCustomer)

	text := "提升客户满意度"
	x := 120.0
	badFill := "chartreuse-ish"
	if _, err := svc.UpdateNode(node.ID, NodePatch{Text: &text, X: &x, Fill: &badFill}); !errors.Is(err, domain.ErrInvalidColor) {
		t.Fatalf("UpdateNode(bad fill) error = %v, want ErrInvalidColor", err)
	}
	view := svc.Board()
	if got := view.Lanes[1].Nodes[0]; got.Text != domain.DefaultNodeText || got.X != node.X {
		t.Fatalf("rejected patch partially applied: %#v", got)
	}

	shape := "Diamond"
	fill := "#fde68a"
	updated, err := svc.UpdateNode(node.ID, NodePatch{Text: &text, X: &x, Shape: &shape, Fill: &fill})
	if err != nil {
		t.Fatalf("UpdateNode() error = %v", err)
	}
	if updated.Text != text || updated.X != 120 || updated.Y != node.Y || updated.Shape != domain.ShapeDiamond || updated.Fill != fill {
		t.Fatalf("unexpected node %#v", updated)
	}

	blank := "  "
	if _, err := svc.UpdateNode(node.ID, NodePatch{Text: &blank}); !errors.Is(err, domain.ErrInvalidText) {
		t.Fatalf("UpdateNode(blank) error = %v", err)
	}
	if _, err := svc.UpdateNode("missing", NodePatch{Text: &text}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateNode(missing) error = %v", err)
	}
}

func TestServiceConnect(t *testing.T) {
	svc := newTestService(nil)
	a, _ := svc.AddNode(domain.LaneFinancial)
	b, _ := svc.AddNode(domain.LaneCustomer)

	conn, err := svc.Connect(a.ID, b.ID)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if conn.ID != "conn_1" || conn.From != a.ID || conn.To != b.ID {
		t.Fatalf("unexpected connection %#v", conn)
	}
	if _, err := svc.Connect(b.ID, a.ID); !errors.Is(err, ErrDuplicateLink) {
		t.Fatalf("reverse Connect() error = %v, want ErrDuplicateLink", err)
	}
	if _, err := svc.Connect(a.ID, a.ID); !errors.Is(err, domain.ErrInvalidConnection) {
		t.Fatalf("self Connect() error = %v", err)
	}
	if _, err := svc.Connect(a.ID, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Connect(ghost) error = %v", err)
	}

	svc.ClearConnections()
	if got := len(svc.Board().Connections); got != 0 {
		t.Fatalf("connections = %d after clear", got)
	}
}

func TestServiceResizeLaneFloors(t *testing.T) {
	svc := newTestService(nil)
	lane, err := svc.ResizeLane(domain.LaneProcess, 10)
	if err != nil {
		t.Fatalf("ResizeLane() error = %v", err)
	}
	if lane.Height != domain.MinLaneHeight {
		t.Fatalf("height = %v, want %v", lane.Height, domain.MinLaneHeight)
	}
	if _, err := svc.ResizeLane("lane_0", 300); !errors.Is(err, ErrUnknownLane) {
		t.Fatalf("ResizeLane(unknown) error = %v", err)
	}
}

func TestServiceSceneTracksChanges(t *testing.T) {
	svc := newTestService(nil)
	a, _ := svc.AddNode(domain.LaneFinancial)
	b, _ := svc.AddNode(domain.LaneCustomer)
	svc.Connect(a.ID, b.ID)

	scene := svc.Scene()
	if len(scene.Paths) != 1 || scene.Paths[0].From != a.ID {
		t.Fatalf("paths = %#v", scene.Paths)
	}
	svc.Scene()
	if got := svc.OverlayRecomputes(); got != 1 {
		t.Fatalf("recomputes = %d, want 1", got)
	}
	x := 300.0
	svc.UpdateNode(b.ID, NodePatch{X: &x})
	svc.Scene()
	if got := svc.OverlayRecomputes(); got != 2 {
		t.Fatalf("recomputes = %d, want 2", got)
	}
}

func TestServiceAdviceUsesActivation(t *testing.T) {
	svc := newTestService(nil)
	node, _ := svc.AddNode(domain.LaneLearning)

	if _, err := svc.Advice(""); err == nil {
		t.Fatalf("Advice() without Step 3 data should fail")
	}
	svc.SetStep3(&domain.Step3Data{})
	if _, err := svc.ActivateNode(node.ID); err != nil {
		t.Fatalf("ActivateNode() error = %v", err)
	}
	if ctx, ok := svc.AdviceContext(); !ok || ctx.NodeID != node.ID {
		t.Fatalf("AdviceContext() = %#v, %v", ctx, ok)
	}
	req, err := svc.Advice("")
	if err != nil {
		t.Fatalf("Advice() error = %v", err)
	}
	if !strings.Contains(req.Question(), node.ID) {
		t.Fatalf("question = %q", req.Question())
	}
	if _, ok := svc.AdviceContext(); ok {
		t.Fatalf("context should be consumed")
	}
	if _, err := svc.ActivateNode("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ActivateNode(missing) error = %v", err)
	}
}

func TestServiceConcurrentAccess(t *testing.T) {
	svc := newTestService(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				svc.AddNode(domain.LaneIDs()[j%4])
				svc.Scene()
			}
		}()
	}
	wg.Wait()
	total := 0
	for _, lane := range svc.Board().Lanes {
		total += len(lane.Nodes)
	}
	if total != 200 {
		t.Fatalf("nodes = %d, want 200", total)
	}
}

func TestServiceDoAndLock(t *testing.T) {
	svc := newTestService(nil)
	svc.Do(func(b *board.Board) {
		b.ToggleConnectMode()
	})
	if !svc.Board().ConnectMode {
		t.Fatalf("Do() mutation not visible")
	}
	if !svc.ToggleLock() || !svc.Board().Locked {
		t.Fatalf("ToggleLock() did not lock")
	}
	svc.Reset()
	if !svc.Board().Locked {
		t.Fatalf("reset should keep the lock flag")
	}
}
