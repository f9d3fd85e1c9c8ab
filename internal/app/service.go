package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/scorecard/internal/advice"
	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/evanschultz/scorecard/internal/geometry"
)

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	LaneHeight   float64
	InitialNodes []domain.Node
	Keywords     PlatformKeywords
	Advice       advice.Settings
	Metrics      geometry.Metrics
	BoardOptions []board.Option
}

// Service owns one board and serializes every access to it, so the TUI loop,
// HTTP handlers, MCP tools and the Step 3 watcher can share it.
type Service struct {
	mu        sync.Mutex
	board     *board.Board
	overlay   *geometry.Overlay
	assistant *advice.Assistant
	repo      Repository
	clock     Clock
	keywords  PlatformKeywords
	step3     *domain.Step3Data
}

// NewService constructs a new value for this package. repo may be nil when
// snapshots are not needed.
func NewService(repo Repository, clock Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	opts := []board.Option{board.WithInitialNodes(cfg.InitialNodes)}
	if cfg.LaneHeight > 0 {
		opts = append(opts, board.WithLaneHeight(cfg.LaneHeight))
	}
	opts = append(opts, cfg.BoardOptions...)
	b := board.New(opts...)

	assistant := advice.New(cfg.Advice)
	assistant.Attach(b)

	return &Service{
		board:     b,
		overlay:   geometry.NewOverlay(b, cfg.Metrics),
		assistant: assistant,
		repo:      repo,
		clock:     clock,
		keywords:  cfg.Keywords.withDefaults(),
	}
}

// Do runs fn with exclusive access to the board.
func (s *Service) Do(fn func(*board.Board)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.board)
}

// BoardView is a read-only copy of the board state.
type BoardView struct {
	Lanes        []domain.Lane
	Connections  []domain.Connection
	Selected     string
	ConnectMode  bool
	PendingStart string
	Locked       bool
}

// Board returns the current board state.
func (s *Service) Board() BoardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// viewLocked copies the board state. Callers hold s.mu.
func (s *Service) viewLocked() BoardView {
	selected, _ := s.board.Selected()
	pending, _ := s.board.Pending()
	return BoardView{
		Lanes:        s.board.Lanes(),
		Connections:  s.board.Connections(),
		Selected:     selected,
		ConnectMode:  s.board.ConnectMode(),
		PendingStart: pending.StartID,
		Locked:       s.board.Locked(),
	}
}

// Scene is everything needed to draw the board: state, layout and connector paths.
type Scene struct {
	BoardView
	Layout  geometry.Layout
	Paths   []geometry.Path
	Pending *geometry.Path
}

// Scene returns the board state together with its cached geometry.
func (s *Service) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	scene := Scene{
		BoardView: s.viewLocked(),
		Layout:    s.overlay.Layout(),
		Paths:     s.overlay.Paths(),
	}
	if path, ok := s.overlay.PendingPath(); ok {
		scene.Pending = &path
	}
	return scene
}

// OverlayRecomputes reports how many times connector geometry has been rebuilt.
func (s *Service) OverlayRecomputes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Recomputes()
}

// AddNode appends a default node to a lane.
func (s *Service) AddNode(laneID string) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.board.AddNode(strings.TrimSpace(laneID))
	if !ok {
		return domain.Node{}, fmt.Errorf("add node to %q: %w", laneID, ErrUnknownLane)
	}
	return node, nil
}

// DeleteNode removes a node and its connections.
func (s *Service) DeleteNode(laneID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.board.DeleteNode(laneID, nodeID) {
		return fmt.Errorf("delete node %q in %q: %w", nodeID, laneID, ErrNotFound)
	}
	return nil
}

// NodePatch holds optional node changes. Nil fields are left unchanged.
type NodePatch struct {
	Text   *string
	X      *float64
	Y      *float64
	Shape  *string
	Fill   *string
	Border *string
}

// UpdateNode applies a patch. The whole patch is validated before anything changes.
func (s *Service) UpdateNode(nodeID string, patch NodePatch) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _, ok := s.board.Node(nodeID)
	if !ok {
		return domain.Node{}, fmt.Errorf("update node %q: %w", nodeID, ErrNotFound)
	}
	var style board.StylePatch
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return domain.Node{}, fmt.Errorf("text: %w", domain.ErrInvalidText)
	}
	if patch.Shape != nil {
		shape, err := domain.ParseShape(*patch.Shape)
		if err != nil {
			return domain.Node{}, err
		}
		style.Shape = &shape
	}
	if patch.Fill != nil {
		if _, err := domain.NormalizeColor(*patch.Fill); err != nil {
			return domain.Node{}, fmt.Errorf("fill: %w", err)
		}
		style.Fill = patch.Fill
	}
	if patch.Border != nil {
		if _, err := domain.NormalizeColor(*patch.Border); err != nil {
			return domain.Node{}, fmt.Errorf("border: %w", err)
		}
		style.Border = patch.Border
	}

	if patch.Text != nil {
		s.board.UpdateText(nodeID, strings.TrimSpace(*patch.Text))
	}
	if patch.X != nil || patch.Y != nil {
		x, y := current.X, current.Y
		if patch.X != nil {
			x = *patch.X
		}
		if patch.Y != nil {
			y = *patch.Y
		}
		s.board.MoveNode(nodeID, x, y)
	}
	if style.Shape != nil || style.Fill != nil || style.Border != nil {
		if !s.board.UpdateStyle(nodeID, style) {
			return domain.Node{}, fmt.Errorf("update node %q style: %w", nodeID, ErrInvalidPatch)
		}
	}
	node, _, _ := s.board.Node(nodeID)
	return node, nil
}

// ResizeLane sets a lane height, floored at the minimum.
func (s *Service) ResizeLane(laneID string, height float64) (domain.Lane, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.board.ResizeLane(laneID, height) {
		return domain.Lane{}, fmt.Errorf("resize %q: %w", laneID, ErrUnknownLane)
	}
	for _, lane := range s.board.Lanes() {
		if lane.ID == laneID {
			return lane, nil
		}
	}
	return domain.Lane{}, fmt.Errorf("resize %q: %w", laneID, ErrUnknownLane)
}

// Connect links two nodes. Unknown endpoints, self links and existing pairs are rejected.
func (s *Service) Connect(from, to string) (domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.board.Node(from); !ok {
		return domain.Connection{}, fmt.Errorf("connect from %q: %w", from, ErrNotFound)
	}
	if _, _, ok := s.board.Node(to); !ok {
		return domain.Connection{}, fmt.Errorf("connect to %q: %w", to, ErrNotFound)
	}
	if from == to {
		return domain.Connection{}, domain.ErrInvalidConnection
	}
	conn, ok := s.board.Connect(from, to)
	if !ok {
		return domain.Connection{}, fmt.Errorf("connect %q -> %q: %w", from, to, ErrDuplicateLink)
	}
	return conn, nil
}

// ClearConnections removes every connection.
func (s *Service) ClearConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.ClearConnections()
}

// Reset restores the empty default board.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.Reset()
}

// ToggleLock flips the confirm flag.
func (s *Service) ToggleLock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.ToggleLock()
}

// ActivateNode records a double-click on a node for the advice assistant.
func (s *Service) ActivateNode(nodeID string) (board.Activation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.board.Node(nodeID); !ok {
		return board.Activation{}, fmt.Errorf("activate %q: %w", nodeID, ErrNotFound)
	}
	act, _ := s.board.ActivateNode(nodeID)
	return act, nil
}

// SetStep3 replaces the Step 3 data used by export and advice. nil clears it.
func (s *Service) SetStep3(data *domain.Step3Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step3 = data
}

// Step3 returns the loaded Step 3 data.
func (s *Service) Step3() (*domain.Step3Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step3, s.step3 != nil
}

// Advice builds a chat request. An empty question analyzes the board, using
// and consuming the last double-clicked card when there is one.
func (s *Service) Advice(question string) (advice.ChatRequest, error) {
	s.mu.Lock()
	ready := s.step3 != nil
	s.mu.Unlock()
	if strings.TrimSpace(question) == "" {
		return s.assistant.Analyze(ready)
	}
	return s.assistant.Ask(question, ready)
}

// AdviceContext returns the pending card context without consuming it.
func (s *Service) AdviceContext() (advice.Context, bool) {
	return s.assistant.Pending()
}

// ActionPlan builds the export workbook content for the current board.
func (s *Service) ActionPlan() (ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildActionPlan(s.board.State(), s.step3, s.keywords, s.clock())
}

// Close releases board subscriptions.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Close()
}

// requireRepo reports ErrNoRepository when snapshots are unavailable.
func (s *Service) requireRepo() error {
	if s.repo == nil {
		return ErrNoRepository
	}
	return nil
}
