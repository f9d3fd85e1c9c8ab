package domain

import "testing"

func TestDefaultLanesDistributesByKeyword(t *testing.T) {
	initial := []Node{
		{ID: "financial_1", Text: "营收增长"},
		{ID: "customer_1", Text: "客户满意"},
		{ID: "process_1", Text: "流程优化"},
		{ID: "learning_1", Text: "人才培养"},
		{ID: "financial_2", Text: "利润提升"},
		{ID: "orphan", Text: "无归属"},
	}
	lanes := DefaultLanes(initial)
	if len(lanes) != 4 {
		t.Fatalf("len(lanes) = %d, want 4", len(lanes))
	}
	wantIDs := []string{LaneFinancial, LaneCustomer, LaneProcess, LaneLearning}
	wantCounts := []int{2, 1, 1, 1}
	for i, lane := range lanes {
		if lane.ID != wantIDs[i] {
			t.Fatalf("lanes[%d].ID = %q, want %q", i, lane.ID, wantIDs[i])
		}
		if lane.Height != DefaultLaneHeight {
			t.Fatalf("lanes[%d].Height = %v", i, lane.Height)
		}
		if len(lane.Nodes) != wantCounts[i] {
			t.Fatalf("lanes[%d] has %d nodes, want %d", i, len(lane.Nodes), wantCounts[i])
		}
	}
	if lanes[0].Title != "财务层面" || lanes[3].ColorClass != "bg-purple-50" {
		t.Fatalf("unexpected lane metadata %#v", lanes)
	}
}

func TestClampLaneHeight(t *testing.T) {
	cases := map[float64]float64{-5: 100, 0: 100, 99.9: 100, 100: 100, 250: 250}
	for in, want := range cases {
		if got := ClampLaneHeight(in); got != want {
			t.Fatalf("ClampLaneHeight(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestLaneCloneIsDeep(t *testing.T) {
	lane := Lane{ID: LaneFinancial, Nodes: []Node{{ID: "a", Text: "x"}}}
	clone := lane.Clone()
	clone.Nodes[0].Text = "changed"
	if lane.Nodes[0].Text != "x" {
		t.Fatalf("clone shares node storage with original")
	}
}

func TestConnectionLinks(t *testing.T) {
	c, err := NewConnection("c1", "a", "b")
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	if !c.Links("a", "b") || !c.Links("b", "a") {
		t.Fatalf("expected Links to ignore direction")
	}
	if c.Links("a", "c") {
		t.Fatalf("unexpected link to c")
	}
	if _, err := NewConnection("c2", "a", "a"); err != ErrInvalidConnection {
		t.Fatalf("expected ErrInvalidConnection, got %v", err)
	}
}
