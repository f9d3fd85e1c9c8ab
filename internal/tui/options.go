package tui

import (
	"time"

	"github.com/atotto/clipboard"
)

// Option configures a Model.
type Option func(*Model)

// WithKeyConfig applies key binding overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClock sets the clock used for double-click detection and snapshot names.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDoubleClickInterval sets the longest gap between the two clicks of a double-click.
func WithDoubleClickInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.doubleClick = d
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithSnapshotPrefix sets the name prefix for snapshots saved from the board.
func WithSnapshotPrefix(prefix string) Option {
	return func(m *Model) {
		m.snapshotPrefix = prefix
	}
}

// defaultClipboard writes to the system clipboard.
func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
