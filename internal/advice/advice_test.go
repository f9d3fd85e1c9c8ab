package advice

import (
	"errors"
	"strings"
	"testing"

	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestAnalyzeRequiresStepData(t *testing.T) {
	a := New(Settings{})
	if _, err := a.Analyze(false); !errors.Is(err, ErrStepsIncomplete) {
		t.Fatalf("Analyze(false) error = %v, want ErrStepsIncomplete", err)
	}
	if got := ErrStepsIncomplete.Error(); got != "请先完成 Step 1-3 的战略分析，再使用 AI 助手分析。" {
		t.Fatalf("notice = %q", got)
	}
}

func TestAnalyzeDefaultQuestion(t *testing.T) {
	a := New(Settings{})
	req, err := a.Analyze(true)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	want := ChatRequest{
		Model: "glm-4",
		Messages: []Message{
			{Role: "system", Content: AnalyzeSystem},
			{Role: "user", Content: "请分析我的 BSC 战略地图，提供 2-3 条具体改进建议。"},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestActivationContextIsConsumedOnce(t *testing.T) {
	b := board.New(board.WithRandom(func() float64 { return 0 }))
	node, _ := b.AddNode(domain.LaneCustomer)
	b.UpdateText(node.ID, "提升复购率")

	a := New(Settings{Model: "glm-4-flash"})
	detach := a.Attach(b)
	defer detach()

	if _, ok := a.Pending(); ok {
		t.Fatalf("context present before any activation")
	}
	b.ActivateNode(node.ID)
	ctx, ok := a.Pending()
	if !ok || ctx.NodeID != node.ID || ctx.Text != "提升复购率" {
		t.Fatalf("Pending() = %#v, %v", ctx, ok)
	}

	req, err := a.Analyze(true)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	want := "我双击了战略卡片「提升复购率」（ID: " + node.ID + "），请提供 2-3 条关于这个目标的改进建议。"
	if got := req.Question(); got != want {
		t.Fatalf("question = %q, want %q", got, want)
	}
	if req.Model != "glm-4-flash" {
		t.Fatalf("model = %q", req.Model)
	}

	req, _ = a.Analyze(true)
	if req.Question() != DefaultQuestion {
		t.Fatalf("context was not consumed, got %q", req.Question())
	}
}

func TestAnalyzeWithoutStepDataKeepsContext(t *testing.T) {
	a := New(Settings{})
	a.Remember(board.Activation{NodeID: "cap_1", Text: "x"})
	a.Analyze(false)
	if _, ok := a.Pending(); !ok {
		t.Fatalf("context should survive a refused analysis")
	}
}

func TestAsk(t *testing.T) {
	a := New(Settings{})
	if _, err := a.Ask("  ", true); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("Ask(blank) error = %v", err)
	}
	if _, err := a.Ask("如何提升交付力？", false); !errors.Is(err, ErrStepsIncomplete) {
		t.Fatalf("Ask(not ready) error = %v", err)
	}
	req, err := a.Ask(" 如何提升交付力？ ", true)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if req.Messages[0].Content != AskSystem || req.Question() != "如何提升交付力？" {
		t.Fatalf("unexpected request %#v", req)
	}
	if md := req.Markdown(); !strings.Contains(md, "如何提升交付力？") || !strings.Contains(md, "max_tokens=2000") {
		t.Fatalf("Markdown() = %q", md)
	}
}

func TestNewKeepsExplicitZeroTemperature(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     float64
	}{
		{name: "unset uses default", settings: Settings{}, want: 0.7},
		{name: "explicit zero", settings: Settings{Temperature: Float(0)}, want: 0},
		{name: "explicit value", settings: Settings{Temperature: Float(1.2)}, want: 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := New(tt.settings).Analyze(true)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if req.Temperature != tt.want {
				t.Fatalf("temperature = %v, want %v", req.Temperature, tt.want)
			}
		})
	}
}
