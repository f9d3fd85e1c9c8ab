package tui

import (
	"strings"
	"unicode"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/scorecard/internal/domain"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit             key.Binding
	toggleHelp       key.Binding
	addFinancial     key.Binding
	addCustomer      key.Binding
	addProcess       key.Binding
	addLearning      key.Binding
	nextNode         key.Binding
	prevNode         key.Binding
	editNode         key.Binding
	deleteNode       key.Binding
	selectNode       key.Binding
	connectMode      key.Binding
	connectFocused   key.Binding
	cancel           key.Binding
	clearConnections key.Binding
	reset            key.Binding
	toggleLock       key.Binding
	cycleFill        key.Binding
	cycleBorder      key.Binding
	cycleShape       key.Binding
	analyze          key.Binding
	ask              key.Binding
	copyPrompt       key.Binding
	saveSnapshot     key.Binding
	scrollUp         key.Binding
	scrollDown       key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:             key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		addFinancial:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "add to 财务层面")),
		addCustomer:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "add to 客户层面")),
		addProcess:       key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "add to 内部流程")),
		addLearning:      key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "add to 学习成长")),
		nextNode:         key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next card")),
		prevNode:         key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous card")),
		editNode:         key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter/e", "edit card")),
		deleteNode:       key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete card")),
		selectNode:       key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "select for styling")),
		connectMode:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect mode")),
		connectFocused:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "connect focused card")),
		cancel:           key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel pending")),
		clearConnections: key.NewBinding(key.WithKeys("C", "shift+c"), key.WithHelp("C", "clear connections")),
		reset:            key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "reset board")),
		toggleLock:       key.NewBinding(key.WithKeys("L", "shift+l"), key.WithHelp("L", "lock & confirm")),
		cycleFill:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "cycle fill")),
		cycleBorder:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "cycle border")),
		cycleShape:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle shape")),
		analyze:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "AI analysis")),
		ask:              key.NewBinding(key.WithKeys("A", "shift+a"), key.WithHelp("A", "ask a question")),
		copyPrompt:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy prompt")),
		saveSnapshot:     key.NewBinding(key.WithKeys("S", "shift+s"), key.WithHelp("S", "save snapshot")),
		scrollUp:         key.NewBinding(key.WithKeys("pgup", "K"), key.WithHelp("pgup", "scroll up")),
		scrollDown:       key.NewBinding(key.WithKeys("pgdown", "J"), key.WithHelp("pgdn", "scroll down")),
	}
}

// laneForKey returns the lane id bound to one of the add-node keys.
func (k keyMap) laneForKey(msg tea.KeyPressMsg) (string, bool) {
	switch {
	case key.Matches(msg, k.addFinancial):
		return domain.LaneFinancial, true
	case key.Matches(msg, k.addCustomer):
		return domain.LaneCustomer, true
	case key.Matches(msg, k.addProcess):
		return domain.LaneProcess, true
	case key.Matches(msg, k.addLearning):
		return domain.LaneLearning, true
	default:
		return "", false
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addFinancial, k.editNode, k.connectMode, k.selectNode, k.cycleFill, k.analyze, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addFinancial, k.addCustomer, k.addProcess, k.addLearning, k.nextNode, k.prevNode, k.editNode, k.deleteNode},
		{k.connectMode, k.connectFocused, k.cancel, k.clearConnections, k.reset, k.toggleLock},
		{k.selectNode, k.cycleFill, k.cycleBorder, k.cycleShape},
		{k.analyze, k.ask, k.copyPrompt, k.saveSnapshot, k.scrollUp, k.scrollDown, k.toggleHelp, k.quit},
	}
}

// KeyConfig overrides individual bindings. Blank fields keep the defaults.
type KeyConfig struct {
	ConnectMode  string
	Analyze      string
	SaveSnapshot string
	ToggleLock   string
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.connectMode, cfg.ConnectMode, "c", "connect mode")
	configureBinding(&k.analyze, cfg.Analyze, "a", "AI analysis")
	configureBinding(&k.saveSnapshot, cfg.SaveSnapshot, "S", "save snapshot")
	configureBinding(&k.toggleLock, cfg.ToggleLock, "L", "lock & confirm")
}

// configureBinding rebinds b to raw, or to fallback when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns a configured key into matcher strings and its help label.
// Single uppercase runes also match their shift+ form; space matches both spellings.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = fallback
	}
	if strings.EqualFold(value, "space") || value == " " {
		return []string{" ", "space"}, "space"
	}
	runes := []rune(value)
	if len(runes) == 1 {
		r := runes[0]
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + string(unicode.ToLower(r))}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}
