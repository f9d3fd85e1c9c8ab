package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanschultz/scorecard/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the full runtime configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Export   ExportConfig   `toml:"export"`
	Render   RenderConfig   `toml:"render"`
	Step3    Step3Config    `toml:"step3"`
	Server   ServerConfig   `toml:"server"`
	Advice   AdviceConfig   `toml:"advice"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds runtime log settings.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the logfmt file sink used in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	InitialLaneHeight float64             `toml:"initial_lane_height"`
	InitialNodes      []InitialNodeConfig `toml:"initial_nodes"`
}

// InitialNodeConfig seeds one card at startup. The id must contain a lane
// keyword (financial, customer, process, learning) to be placed.
type InitialNodeConfig struct {
	ID     string  `toml:"id"`
	Text   string  `toml:"text"`
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Shape  string  `toml:"shape"`
	Fill   string  `toml:"fill"`
	Border string  `toml:"border"`
}

// Nodes validates the configured initial cards and applies style defaults.
func (b BoardConfig) Nodes() ([]domain.Node, error) {
	nodes := make([]domain.Node, 0, len(b.InitialNodes))
	seen := make(map[string]struct{}, len(b.InitialNodes))
	for i, in := range b.InitialNodes {
		node, err := domain.NewNode(domain.NodeInput{
			ID:     in.ID,
			Text:   in.Text,
			X:      in.X,
			Y:      in.Y,
			Shape:  domain.Shape(strings.TrimSpace(in.Shape)),
			Fill:   in.Fill,
			Border: in.Border,
		})
		if err != nil {
			return nil, fmt.Errorf("board.initial_nodes[%d]: %w", i, err)
		}
		if _, dup := seen[node.ID]; dup {
			return nil, fmt.Errorf("board.initial_nodes[%d]: duplicate id %q", i, node.ID)
		}
		seen[node.ID] = struct{}{}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// ExportConfig holds spreadsheet export settings. Empty keyword lists keep the built-in lists.
type ExportConfig struct {
	Dir             string   `toml:"dir"`
	HRKeywords      []string `toml:"hr_keywords"`
	FinanceKeywords []string `toml:"finance_keywords"`
	DigitalKeywords []string `toml:"digital_keywords"`
}

type RenderConfig struct {
	FontPath string  `toml:"font_path"`
	Scale    float64 `toml:"scale"`
}

// Step3Config points at the target-setting result file.
type Step3Config struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// AdviceConfig holds the chat request parameters.
type AdviceConfig struct {
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// KeyConfig overrides single TUI bindings. Blank values keep the built-in key.
type KeyConfig struct {
	ConnectMode  string `toml:"connect_mode"`
	Analyze      string `toml:"analyze"`
	SaveSnapshot string `toml:"save_snapshot"`
	ToggleLock   string `toml:"toggle_lock"`
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

// Default returns the built-in configuration.
func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
			},
		},
		Board: BoardConfig{
			InitialLaneHeight: domain.DefaultLaneHeight,
		},
		Render: RenderConfig{
			Scale: 1,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Advice: AdviceConfig{
			Model:       "glm-4",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Keys: KeyConfig{
			ConnectMode:  "c",
			Analyze:      "a",
			SaveSnapshot: "S",
			ToggleLock:   "L",
		},
	}
}

// Load reads path over defaults. A missing or empty file yields the defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if !slices.Contains(logLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Board.InitialLaneHeight != 0 && c.Board.InitialLaneHeight < domain.MinLaneHeight {
		return fmt.Errorf("board.initial_lane_height must be >= %v", domain.MinLaneHeight)
	}
	if _, err := c.Board.Nodes(); err != nil {
		return err
	}

	for name, list := range map[string][]string{
		"hr_keywords":      c.Export.HRKeywords,
		"finance_keywords": c.Export.FinanceKeywords,
		"digital_keywords": c.Export.DigitalKeywords,
	} {
		for i, kw := range list {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("export.%s[%d] is blank", name, i)
			}
		}
	}

	if c.Render.Scale <= 0 || c.Render.Scale > 8 {
		return fmt.Errorf("render.scale must be in (0, 8], got %v", c.Render.Scale)
	}

	if c.Step3.Watch && strings.TrimSpace(c.Step3.Path) == "" {
		return errors.New("step3.watch requires step3.path")
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	for name, endpoint := range map[string]string{
		"api_endpoint": c.Server.APIEndpoint,
		"mcp_endpoint": c.Server.MCPEndpoint,
	} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("server.%s must start with '/': %q", name, endpoint)
		}
	}

	if strings.TrimSpace(c.Advice.Model) == "" {
		return errors.New("advice.model is required")
	}
	if c.Advice.Temperature < 0 || c.Advice.Temperature > 2 {
		return fmt.Errorf("advice.temperature must be in [0, 2], got %v", c.Advice.Temperature)
	}
	if c.Advice.MaxTokens <= 0 {
		return errors.New("advice.max_tokens must be > 0")
	}

	seen := map[string]string{}
	for name, binding := range map[string]string{
		"connect_mode":  c.Keys.ConnectMode,
		"analyze":       c.Keys.Analyze,
		"save_snapshot": c.Keys.SaveSnapshot,
		"toggle_lock":   c.Keys.ToggleLock,
	} {
		binding = strings.TrimSpace(binding)
		if binding == "" {
			continue
		}
		if other, ok := seen[binding]; ok {
			return fmt.Errorf("keys.%s and keys.%s both use %q", name, other, binding)
		}
		seen[binding] = name
	}

	return nil
}

// EnsureConfigDir creates the directory holding path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes cfg to path unless a file already exists there. It reports whether it wrote.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
