// Package realtime pushes server-side events to browser clients over
// websockets. Each authenticated connection joins the group of its user and
// receives every event addressed to that user.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JoaoG250/micro-do/common/metrics"
)

// DefaultMaxConnectionsPerUser caps a user's live connections.
const DefaultMaxConnectionsPerUser = 3

// ErrGroupFull is returned by Join when the user is already at capacity.
var ErrGroupFull = errors.New("connection limit reached")

// Frame is the JSON envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals data under event.
func EncodeFrame(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		raw = b
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// group is one user's set of live connections. A group removed from the
// registry is marked dead so a concurrent Join retries on a fresh group.
type group struct {
	mu      sync.Mutex
	members map[*Conn]struct{}
	dead    bool
}

// Registry owns the per-user connection groups. Operations on one group are
// serialized by that group's lock; different users never contend beyond the
// map lookup.
type Registry struct {
	max int

	mu     sync.Mutex
	groups map[string]*group
}

func NewRegistry(maxPerUser int) *Registry {
	if maxPerUser < 1 {
		maxPerUser = DefaultMaxConnectionsPerUser
	}
	return &Registry{max: maxPerUser, groups: make(map[string]*group)}
}

func (r *Registry) obtain(userID string) *group {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[userID]
	if !ok {
		g = &group{members: make(map[*Conn]struct{})}
		r.groups[userID] = g
	}
	return g
}

func (r *Registry) lookup(userID string) *group {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[userID]
}

// Join adds c to its user's group unless the group is full.
func (r *Registry) Join(c *Conn) error {
	for {
		g := r.obtain(c.userID)
		g.mu.Lock()
		if g.dead {
			g.mu.Unlock()
			continue
		}
		if _, ok := g.members[c]; ok {
			g.mu.Unlock()
			return nil
		}
		if len(g.members) >= r.max {
			g.mu.Unlock()
			r.dropIfEmpty(c.userID, g)
			return ErrGroupFull
		}
		g.members[c] = struct{}{}
		g.mu.Unlock()

		metrics.RealtimeConnections.Inc()
		return nil
	}
}

// Leave removes c from its group and deletes the group once empty.
func (r *Registry) Leave(c *Conn) {
	g := r.lookup(c.userID)
	if g == nil {
		return
	}

	g.mu.Lock()
	_, ok := g.members[c]
	delete(g.members, c)
	g.mu.Unlock()

	if ok {
		metrics.RealtimeConnections.Dec()
	}
	r.dropIfEmpty(c.userID, g)
}

func (r *Registry) dropIfEmpty(userID string, g *group) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead || len(g.members) > 0 {
		return
	}
	g.dead = true

	r.mu.Lock()
	if r.groups[userID] == g {
		delete(r.groups, userID)
	}
	r.mu.Unlock()
}

// NotifyUser pushes event to every live connection of userID and returns the
// number of connections that accepted the frame. Users without connections
// receive nothing.
func (r *Registry) NotifyUser(userID, event string, payload any) (int, error) {
	g := r.lookup(userID)
	if g == nil {
		return 0, nil
	}

	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	delivered := 0
	for c := range g.members {
		if c.enqueue(frame) {
			delivered++
		}
	}
	if delivered > 0 {
		metrics.RealtimePushes.WithLabelValues(event).Add(float64(delivered))
	}
	return delivered, nil
}

// Count returns the number of live connections for userID.
func (r *Registry) Count(userID string) int {
	g := r.lookup(userID)
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Users returns the number of users with at least one connection.
func (r *Registry) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Close disconnects every member. Their handlers remove them on the way out.
func (r *Registry) Close() {
	r.mu.Lock()
	groups := make([]*group, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, g)
	}
	r.mu.Unlock()

	for _, g := range groups {
		g.mu.Lock()
		for c := range g.members {
			c.shutdown()
		}
		g.mu.Unlock()
	}
}
