package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Conn tracks one open stream connection for the stats surface.
type Conn struct {
	ID         string
	RemoteAddr string
	Transport  string
	Cursor     string
	StartedAt  time.Time

	events atomic.Int64
}

// NoteEvent records one emitted event. Safe for concurrent use.
func (c *Conn) NoteEvent() {
	c.events.Add(1)
}

// ConnStat is a point-in-time view of a connection.
type ConnStat struct {
	ID         string  `json:"id"`
	RemoteAddr string  `json:"remote_addr"`
	Transport  string  `json:"transport"`
	Cursor     string  `json:"cursor,omitempty"`
	UptimeSec  float64 `json:"uptime_s"`
	Events     int64   `json:"events"`
}

// Registry holds the set of currently open stream connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Register adds a connection and returns its handle.
func (r *Registry) Register(remoteAddr, transport, cursor string) *Conn {
	c := &Conn{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		Transport:  transport,
		Cursor:     cursor,
		StartedAt:  time.Now(),
	}

	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
	return c
}

// Release removes a connection. Releasing an unknown connection is a no-op.
func (r *Registry) Release(c *Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	delete(r.conns, c.ID)
	r.mu.Unlock()
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns stats for all open connections.
func (r *Registry) Snapshot() []ConnStat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	out := make([]ConnStat, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, ConnStat{
			ID:         c.ID,
			RemoteAddr: c.RemoteAddr,
			Transport:  c.Transport,
			Cursor:     c.Cursor,
			UptimeSec:  now.Sub(c.StartedAt).Seconds(),
			Events:     c.events.Load(),
		})
	}
	return out
}
