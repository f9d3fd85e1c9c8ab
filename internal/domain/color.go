package domain

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultFill and DefaultBorder are the colours given to new nodes.
const (
	DefaultFill   = "hsl(215, 80%, 97%)"
	DefaultBorder = "hsl(215, 60%, 75%)"
)

var fillPalette = []string{
	"#ffffff", "#fef3c7", "#fde68a", "#fed7aa", "#feca57", "#e9d5ff",
	"#dbeafe", "#d1fae5", "#e2e8f0", "#fce7f3", "#ccfbf1", "#f0fdf4",
}

var borderPalette = []string{
	"#334155", "#b45309", "#d97706", "#ea580c", "#dc2626", "#9333ea",
	"#2563eb", "#059669", "#64748b", "#db2777", "#0d9488", "#16a34a",
}

// laneColorClasses maps lane colour classes to their background hex values.
var laneColorClasses = map[string]string{
	"bg-red-50":    "#fef2f2",
	"bg-blue-50":   "#eff6ff",
	"bg-green-50":  "#f0fdf4",
	"bg-purple-50": "#faf5ff",
}

var hslPattern = regexp.MustCompile(`^hsl\(\s*([0-9.]+)\s*,\s*([0-9.]+)%\s*,\s*([0-9.]+)%\s*\)$`)

// FillPalette returns the fill swatches in display order.
func FillPalette() []string {
	return slices.Clone(fillPalette)
}

// BorderPalette returns the border swatches in display order.
func BorderPalette() []string {
	return slices.Clone(borderPalette)
}

// LaneBackground resolves a lane colour class to a hex colour, falling back to white.
func LaneBackground(colorClass string) string {
	if hex, ok := laneColorClasses[strings.TrimSpace(colorClass)]; ok {
		return hex
	}
	return "#ffffff"
}

// ParseColor resolves "#rgb", "#rrggbb" and "hsl(h, s%, l%)" strings.
func ParseColor(raw string) (colorful.Color, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(value, "#"):
		c, err := colorful.Hex(value)
		if err != nil {
			return colorful.Color{}, ErrInvalidColor
		}
		return c, nil
	case strings.HasPrefix(value, "hsl("):
		match := hslPattern.FindStringSubmatch(value)
		if match == nil {
			return colorful.Color{}, ErrInvalidColor
		}
		h, errH := strconv.ParseFloat(match[1], 64)
		s, errS := strconv.ParseFloat(match[2], 64)
		l, errL := strconv.ParseFloat(match[3], 64)
		if errH != nil || errS != nil || errL != nil || s > 100 || l > 100 {
			return colorful.Color{}, ErrInvalidColor
		}
		return colorful.Hsl(h, s/100, l/100).Clamped(), nil
	default:
		return colorful.Color{}, ErrInvalidColor
	}
}

// ColorHex converts any supported colour string to "#rrggbb".
func ColorHex(raw string) (string, error) {
	c, err := ParseColor(raw)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}

// normalizeColor validates a colour and returns it trimmed, or the fallback when empty.
func normalizeColor(raw, fallback string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	if _, err := ParseColor(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// NormalizeColor validates a colour string and returns its trimmed form.
func NormalizeColor(raw string) (string, error) {
	value, err := normalizeColor(raw, "")
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", ErrInvalidColor
	}
	return value, nil
}
