// Package advice builds strategy-advice chat requests from board activations.
// It never sends them; callers hand the request to whatever chat backend they use.
package advice

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/evanschultz/scorecard/internal/board"
)

// Prompt text.
const (
	DefaultQuestion  = "请分析我的 BSC 战略地图，提供 2-3 条具体改进建议。"
	AnalyzeSystem    = "你是一位资深战略管理专家，擅长运用罗伯特·卡普兰的平衡计分卡方法论。请基于平衡计分卡的因果关系，仅提供 3 条最关键的、动宾结构的改进建议。每条建议格式：动词 + 对象 + 结果（如：\"实施 ERP 二期\"、\"组建 KA 攻坚队\"、\"优化客户服务流程\"）。严禁长篇大论，直接给出可执行的建议。"
	AskSystem        = "你是一位资深战略管理专家，擅长运用罗伯特·卡普兰的平衡计分卡方法论。请提供简洁、实用、可执行的建议。"
	nodeQuestionTmpl = "我双击了战略卡片「%s」（ID: %s），请提供 2-3 条关于这个目标的改进建议。"
)

var (
	ErrStepsIncomplete = errors.New("请先完成 Step 1-3 的战略分析，再使用 AI 助手分析。")
	ErrEmptyQuestion   = errors.New("question is required")
)

// Settings holds chat completion parameters.
type Settings struct {
	Model string
	// Temperature is nil when unset; zero is a valid sampling temperature.
	Temperature *float64
	MaxTokens   int
}

// DefaultSettings returns the stock completion parameters.
func DefaultSettings() Settings {
	return Settings{Model: "glm-4", Temperature: Float(0.7), MaxTokens: 2000}
}

// Float returns a pointer to v for optional settings fields.
func Float(v float64) *float64 {
	return &v
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat completion request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Question returns the last user message.
func (r ChatRequest) Question() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Markdown renders the request as a short document for display.
func (r ChatRequest) Markdown() string {
	var b strings.Builder
	b.WriteString("## AI 战略顾问\n\n")
	for _, msg := range r.Messages {
		switch msg.Role {
		case "system":
			b.WriteString("**system**\n\n> ")
		default:
			b.WriteString("**" + msg.Role + "**\n\n")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "`model=%s temperature=%g max_tokens=%d`\n", r.Model, r.Temperature, r.MaxTokens)
	return b.String()
}

// Context is the card the user last double-clicked.
type Context struct {
	NodeID string `json:"nodeId"`
	Text   string `json:"text"`
}

// Subscriber is the part of a board the assistant listens to.
type Subscriber interface {
	Subscribe(board.Listener) func()
}

// Assistant stores the last activation and builds requests from it.
type Assistant struct {
	mu       sync.Mutex
	settings Settings
	context  *Context
}

// New constructs an assistant; blank model, nil temperature and non-positive
// max tokens fall back to DefaultSettings.
func New(settings Settings) *Assistant {
	def := DefaultSettings()
	if strings.TrimSpace(settings.Model) == "" {
		settings.Model = def.Model
	}
	if settings.Temperature == nil {
		settings.Temperature = def.Temperature
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = def.MaxTokens
	}
	return &Assistant{settings: settings}
}

// Attach listens for node activations on a board and returns the unsubscribe func.
func (a *Assistant) Attach(src Subscriber) func() {
	return src.Subscribe(func(ev board.Event) {
		if ev.Kind == board.EventNodeActivated && ev.Activation != nil {
			a.Remember(*ev.Activation)
		}
	})
}

// Remember stores an activation as the pending context, replacing any earlier one.
func (a *Assistant) Remember(act board.Activation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.context = &Context{NodeID: act.NodeID, Text: act.Text}
}

// Pending returns the stored context without consuming it.
func (a *Assistant) Pending() (Context, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.context == nil {
		return Context{}, false
	}
	return *a.context, true
}

// Analyze builds the board-analysis request. ready reports whether Step 3 data
// is loaded. A stored card context shapes the question and is consumed.
func (a *Assistant) Analyze(ready bool) (ChatRequest, error) {
	if !ready {
		return ChatRequest{}, ErrStepsIncomplete
	}
	a.mu.Lock()
	question := DefaultQuestion
	if a.context != nil {
		question = fmt.Sprintf(nodeQuestionTmpl, a.context.Text, a.context.NodeID)
		a.context = nil
	}
	a.mu.Unlock()
	return a.request(AnalyzeSystem, question), nil
}

// Ask builds a free-form question request.
func (a *Assistant) Ask(question string, ready bool) (ChatRequest, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatRequest{}, ErrEmptyQuestion
	}
	if !ready {
		return ChatRequest{}, ErrStepsIncomplete
	}
	return a.request(AskSystem, question), nil
}

// request assembles a system plus user request with the configured settings.
func (a *Assistant) request(system, question string) ChatRequest {
	return ChatRequest{
		Model: a.settings.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: question},
		},
		Temperature: *a.settings.Temperature,
		MaxTokens:   a.settings.MaxTokens,
	}
}
