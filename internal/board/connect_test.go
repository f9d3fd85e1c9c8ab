package board

import (
	"testing"

	"github.com/evanschultz/scorecard/internal/domain"
)

func TestTransitionTable(t *testing.T) {
	idle := ConnectState{Kind: Idle}
	awaitingA := ConnectState{Kind: AwaitingTarget, StartID: "a"}

	cases := []struct {
		name      string
		state     ConnectState
		event     ConnectEvent
		wantState ConnectState
		wantLink  *Link
	}{
		{name: "idle click picks start", state: idle, event: NodeClicked{NodeID: "a"}, wantState: awaitingA},
		{name: "idle empty click ignored", state: idle, event: NodeClicked{}, wantState: idle},
		{name: "idle escape", state: idle, event: EscapePressed{}, wantState: idle},
		{name: "idle mode off", state: idle, event: ModeOff{}, wantState: idle},
		{name: "idle pointer", state: idle, event: PointerMoved{At: domain.Point{X: 1, Y: 2}}, wantState: idle},
		{name: "awaiting same node cancels", state: awaitingA, event: NodeClicked{NodeID: "a"}, wantState: idle},
		{name: "awaiting other node links", state: awaitingA, event: NodeClicked{NodeID: "b"}, wantState: idle, wantLink: &Link{From: "a", To: "b"}},
		{name: "awaiting empty click ignored", state: awaitingA, event: NodeClicked{}, wantState: awaitingA},
		{name: "awaiting escape", state: awaitingA, event: EscapePressed{}, wantState: idle},
		{name: "awaiting mode off", state: awaitingA, event: ModeOff{}, wantState: idle},
		{name: "awaiting pointer keeps start", state: awaitingA, event: PointerMoved{At: domain.Point{X: 3, Y: 4}}, wantState: awaitingA},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, link := Transition(tc.state, tc.event)
			if got != tc.wantState {
				t.Fatalf("state = %#v, want %#v", got, tc.wantState)
			}
			switch {
			case tc.wantLink == nil && link != nil:
				t.Fatalf("link = %#v, want nil", *link)
			case tc.wantLink != nil && link == nil:
				t.Fatalf("link = nil, want %#v", *tc.wantLink)
			case tc.wantLink != nil && *link != *tc.wantLink:
				t.Fatalf("link = %#v, want %#v", *link, *tc.wantLink)
			}
		})
	}
}

func TestConnectKindString(t *testing.T) {
	if Idle.String() != "idle" || AwaitingTarget.String() != "awaiting_target" {
		t.Fatalf("unexpected labels %q %q", Idle, AwaitingTarget)
	}
}
