package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "scorecard.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version     string               `json:"version"`
	Name        string               `json:"name,omitempty"`
	SavedAt     time.Time            `json:"saved_at"`
	Locked      bool                 `json:"locked"`
	Lanes       []SnapshotLane       `json:"lanes"`
	Connections []SnapshotConnection `json:"connections"`
}

// SnapshotLane represents snapshot lane data used by this package.
type SnapshotLane struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	ColorClass string         `json:"color_class"`
	Height     float64        `json:"height"`
	Nodes      []SnapshotNode `json:"nodes"`
}

// SnapshotNode represents snapshot node data used by this package.
type SnapshotNode struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Shape       string  `json:"shape"`
	FillColor   string  `json:"fill_color"`
	BorderColor string  `json:"border_color"`
}

// SnapshotConnection represents snapshot connection data used by this package.
type SnapshotConnection struct {
	ID     string `json:"id"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// SnapshotInfo summarizes one stored snapshot.
type SnapshotInfo struct {
	Name        string    `json:"name"`
	SavedAt     time.Time `json:"saved_at"`
	Nodes       int       `json:"nodes"`
	Connections int       `json:"connections"`
}

// Info summarizes the snapshot.
func (s Snapshot) Info() SnapshotInfo {
	nodes := 0
	for _, lane := range s.Lanes {
		nodes += len(lane.Nodes)
	}
	return SnapshotInfo{Name: s.Name, SavedAt: s.SavedAt, Nodes: nodes, Connections: len(s.Connections)}
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotFromState(s.board.State(), s.clock().UTC())
}

// ImportSnapshot validates a snapshot and replaces the board with it.
func (s *Service) ImportSnapshot(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.Restore(snap.toState())
	return nil
}

// SaveSnapshot stores the current board under name, replacing any earlier snapshot of that name.
func (s *Service) SaveSnapshot(ctx context.Context, name string) (SnapshotInfo, error) {
	if err := s.requireRepo(); err != nil {
		return SnapshotInfo{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return SnapshotInfo{}, ErrInvalidName
	}
	snap := s.ExportSnapshot()
	snap.Name = name
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return SnapshotInfo{}, err
	}
	return snap.Info(), nil
}

// LoadSnapshot restores the board from a stored snapshot.
func (s *Service) LoadSnapshot(ctx context.Context, name string) (SnapshotInfo, error) {
	if err := s.requireRepo(); err != nil {
		return SnapshotInfo{}, err
	}
	snap, err := s.repo.GetSnapshot(ctx, strings.TrimSpace(name))
	if err != nil {
		return SnapshotInfo{}, err
	}
	if err := s.ImportSnapshot(snap); err != nil {
		return SnapshotInfo{}, err
	}
	return snap.Info(), nil
}

// ListSnapshots lists stored snapshots, newest first.
func (s *Service) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	return s.repo.ListSnapshots(ctx)
}

// DeleteSnapshot removes a stored snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, name string) error {
	if err := s.requireRepo(); err != nil {
		return err
	}
	return s.repo.DeleteSnapshot(ctx, strings.TrimSpace(name))
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q: %w", s.Version, ErrInvalidSnapshot)
	}

	laneIDs := map[string]struct{}{}
	for _, id := range domain.LaneIDs() {
		laneIDs[id] = struct{}{}
	}
	seenLanes := map[string]struct{}{}
	nodeIDs := map[string]struct{}{}
	for i, lane := range s.Lanes {
		if _, ok := laneIDs[lane.ID]; !ok {
			return fmt.Errorf("lanes[%d] has unknown id %q: %w", i, lane.ID, ErrInvalidSnapshot)
		}
		if _, dup := seenLanes[lane.ID]; dup {
			return fmt.Errorf("duplicate lane id %q: %w", lane.ID, ErrInvalidSnapshot)
		}
		seenLanes[lane.ID] = struct{}{}
		if lane.Height < 0 {
			return fmt.Errorf("lanes[%d].height must be >= 0: %w", i, ErrInvalidSnapshot)
		}
		for j, node := range lane.Nodes {
			if strings.TrimSpace(node.ID) == "" {
				return fmt.Errorf("lanes[%d].nodes[%d].id is required: %w", i, j, ErrInvalidSnapshot)
			}
			if _, dup := nodeIDs[node.ID]; dup {
				return fmt.Errorf("duplicate node id %q: %w", node.ID, ErrInvalidSnapshot)
			}
			nodeIDs[node.ID] = struct{}{}
			if _, err := node.toDomain(); err != nil {
				return fmt.Errorf("lanes[%d].nodes[%d]: %w: %w", i, j, err, ErrInvalidSnapshot)
			}
		}
	}

	for i, conn := range s.Connections {
		if strings.TrimSpace(conn.ID) == "" {
			return fmt.Errorf("connections[%d].id is required: %w", i, ErrInvalidSnapshot)
		}
		if _, ok := nodeIDs[conn.FromID]; !ok {
			return fmt.Errorf("connections[%d] references unknown from_id %q: %w", i, conn.FromID, ErrInvalidSnapshot)
		}
		if _, ok := nodeIDs[conn.ToID]; !ok {
			return fmt.Errorf("connections[%d] references unknown to_id %q: %w", i, conn.ToID, ErrInvalidSnapshot)
		}
		if conn.FromID == conn.ToID {
			return fmt.Errorf("connections[%d] links a node to itself: %w", i, ErrInvalidSnapshot)
		}
	}
	return nil
}

// sort orders lanes by the fixed lane order.
func (s *Snapshot) sort() {
	order := map[string]int{}
	for i, id := range domain.LaneIDs() {
		order[id] = i
	}
	sort.SliceStable(s.Lanes, func(i, j int) bool {
		return order[s.Lanes[i].ID] < order[s.Lanes[j].ID]
	})
}

// snapshotFromState converts board state into its persisted form.
func snapshotFromState(state board.State, savedAt time.Time) Snapshot {
	snap := Snapshot{
		Version:     SnapshotVersion,
		SavedAt:     savedAt,
		Locked:      state.Locked,
		Lanes:       make([]SnapshotLane, 0, len(state.Lanes)),
		Connections: make([]SnapshotConnection, 0, len(state.Connections)),
	}
	for _, lane := range state.Lanes {
		out := SnapshotLane{
			ID:         lane.ID,
			Title:      lane.Title,
			ColorClass: lane.ColorClass,
			Height:     lane.Height,
			Nodes:      make([]SnapshotNode, 0, len(lane.Nodes)),
		}
		for _, node := range lane.Nodes {
			out.Nodes = append(out.Nodes, snapshotNodeFromDomain(node))
		}
		snap.Lanes = append(snap.Lanes, out)
	}
	for _, conn := range state.Connections {
		snap.Connections = append(snap.Connections, SnapshotConnection{ID: conn.ID, FromID: conn.From, ToID: conn.To})
	}
	return snap
}

// snapshotNodeFromDomain converts one node.
func snapshotNodeFromDomain(n domain.Node) SnapshotNode {
	return SnapshotNode{
		ID:          n.ID,
		Text:        n.Text,
		X:           n.X,
		Y:           n.Y,
		Shape:       string(n.Shape),
		FillColor:   n.Fill,
		BorderColor: n.Border,
	}
}

// toDomain validates and converts one persisted node.
func (n SnapshotNode) toDomain() (domain.Node, error) {
	return domain.NewNode(domain.NodeInput{
		ID:     n.ID,
		Text:   n.Text,
		X:      n.X,
		Y:      n.Y,
		Shape:  domain.Shape(n.Shape),
		Fill:   n.FillColor,
		Border: n.BorderColor,
	})
}

// toState converts a validated snapshot into board state.
func (s Snapshot) toState() board.State {
	state := board.State{Locked: s.Locked}
	for _, lane := range s.Lanes {
		out := domain.Lane{ID: lane.ID, Title: lane.Title, ColorClass: lane.ColorClass, Height: lane.Height}
		for _, node := range lane.Nodes {
			dn, err := node.toDomain()
			if err != nil {
				continue
			}
			out.Nodes = append(out.Nodes, dn)
		}
		state.Lanes = append(state.Lanes, out)
	}
	for _, conn := range s.Connections {
		state.Connections = append(state.Connections, domain.Connection{ID: conn.ID, From: conn.FromID, To: conn.ToID})
	}
	return state
}
