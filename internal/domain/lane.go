package domain

import (
	"slices"
	"strings"
)

// Lane ids for the four scorecard perspectives.
const (
	LaneFinancial = "lane_1"
	LaneCustomer  = "lane_2"
	LaneProcess   = "lane_3"
	LaneLearning  = "lane_4"
)

// Lane geometry defaults in board units.
const (
	MinLaneHeight     = 100.0
	DefaultLaneHeight = 200.0
	LanePadding       = 20.0
)

// Lane is one horizontal scorecard perspective holding an ordered node list.
type Lane struct {
	ID         string
	Title      string
	ColorClass string
	Height     float64
	Nodes      []Node
}

type laneTemplate struct {
	id         string
	title      string
	colorClass string
	keyword    string
}

var laneTemplates = []laneTemplate{
	{id: LaneFinancial, title: "财务层面", colorClass: "bg-red-50", keyword: "financial"},
	{id: LaneCustomer, title: "客户层面", colorClass: "bg-blue-50", keyword: "customer"},
	{id: LaneProcess, title: "内部流程", colorClass: "bg-green-50", keyword: "process"},
	{id: LaneLearning, title: "学习成长", colorClass: "bg-purple-50", keyword: "learning"},
}

// LaneIDs returns the fixed lane order.
func LaneIDs() []string {
	out := make([]string, 0, len(laneTemplates))
	for _, tpl := range laneTemplates {
		out = append(out, tpl.id)
	}
	return out
}

// DefaultLanes builds the four perspectives, placing each initial node in the
// first lane whose keyword appears in the node id. Nodes matching no lane are dropped.
func DefaultLanes(initial []Node) []Lane {
	return DefaultLanesWithHeight(initial, DefaultLaneHeight)
}

// DefaultLanesWithHeight is DefaultLanes with a configurable starting height.
func DefaultLanesWithHeight(initial []Node, height float64) []Lane {
	height = ClampLaneHeight(height)
	lanes := make([]Lane, 0, len(laneTemplates))
	for _, tpl := range laneTemplates {
		lane := Lane{
			ID:         tpl.id,
			Title:      tpl.title,
			ColorClass: tpl.colorClass,
			Height:     height,
			Nodes:      []Node{},
		}
		for _, node := range initial {
			if strings.Contains(node.ID, tpl.keyword) {
				lane.Nodes = append(lane.Nodes, node)
			}
		}
		lanes = append(lanes, lane)
	}
	return lanes
}

// ClampLaneHeight floors a requested height at MinLaneHeight.
func ClampLaneHeight(height float64) float64 {
	if height < MinLaneHeight {
		return MinLaneHeight
	}
	return height
}

// Clone deep-copies the lane and its node list.
func (l Lane) Clone() Lane {
	l.Nodes = slices.Clone(l.Nodes)
	if l.Nodes == nil {
		l.Nodes = []Node{}
	}
	return l
}

// NodeIndex returns the position of a node inside the lane.
func (l Lane) NodeIndex(nodeID string) int {
	return slices.IndexFunc(l.Nodes, func(n Node) bool { return n.ID == nodeID })
}

// CloneLanes deep-copies a lane list.
func CloneLanes(in []Lane) []Lane {
	out := make([]Lane, 0, len(in))
	for _, lane := range in {
		out = append(out, lane.Clone())
	}
	return out
}

// LaneTexts collects node labels for the given lanes, in lane then node order.
func LaneTexts(lanes []Lane, laneIDs ...string) []string {
	out := []string{}
	for _, id := range laneIDs {
		for _, lane := range lanes {
			if lane.ID != id {
				continue
			}
			for _, node := range lane.Nodes {
				out = append(out, node.Text)
			}
		}
	}
	return out
}

// FindNode searches every lane for a node id.
func FindNode(lanes []Lane, nodeID string) (Node, string, bool) {
	for _, lane := range lanes {
		if idx := lane.NodeIndex(nodeID); idx >= 0 {
			return lane.Nodes[idx], lane.ID, true
		}
	}
	return Node{}, "", false
}
