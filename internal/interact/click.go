package interact

import "time"

// DefaultDoubleClickInterval is the longest gap between two clicks of a double-click.
const DefaultDoubleClickInterval = 400 * time.Millisecond

// ClickTracker detects double-clicks on the same node.
type ClickTracker struct {
	interval time.Duration
	now      func() time.Time

	lastID string
	lastAt time.Time
}

// NewClickTracker builds a tracker; a nil clock uses time.Now.
func NewClickTracker(interval time.Duration, now func() time.Time) *ClickTracker {
	if interval <= 0 {
		interval = DefaultDoubleClickInterval
	}
	if now == nil {
		now = time.Now
	}
	return &ClickTracker{interval: interval, now: now}
}

// Click records a click and reports whether it completes a double-click.
// A completed double-click resets the tracker so a third click starts over.
func (c *ClickTracker) Click(nodeID string) bool {
	at := c.now()
	if nodeID != "" && nodeID == c.lastID && at.Sub(c.lastAt) <= c.interval {
		c.Reset()
		return true
	}
	c.lastID = nodeID
	c.lastAt = at
	return false
}

// Reset forgets the previous click.
func (c *ClickTracker) Reset() {
	c.lastID = ""
	c.lastAt = time.Time{}
}
