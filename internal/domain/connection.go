package domain

import "strings"

// Connection is a directed link between two nodes.
type Connection struct {
	ID   string
	From string
	To   string
}

// NewConnection validates the endpoints of a directed link.
func NewConnection(id, from, to string) (Connection, error) {
	id = strings.TrimSpace(id)
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if id == "" {
		return Connection{}, ErrInvalidID
	}
	if from == "" || to == "" || from == to {
		return Connection{}, ErrInvalidConnection
	}
	return Connection{ID: id, From: from, To: to}, nil
}

// Links reports whether the connection joins a and b in either direction.
func (c Connection) Links(a, b string) bool {
	return (c.From == a && c.To == b) || (c.From == b && c.To == a)
}

// Touches reports whether the node id is either endpoint.
func (c Connection) Touches(nodeID string) bool {
	return c.From == nodeID || c.To == nodeID
}

// HasLink reports whether any connection joins a and b in either direction.
func HasLink(conns []Connection, a, b string) bool {
	for _, c := range conns {
		if c.Links(a, b) {
			return true
		}
	}
	return false
}
