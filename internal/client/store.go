// Package client implements the consuming side of the feed: a reconnecting
// stream controller and the observable state store it feeds.
package client

import (
	"sort"
	"sync"

	"github.com/driftline/market-sandbox/internal/domain/model"
)

// MaxPoints bounds the candle buffer to the most recent points.
const MaxPoints = 600

// Snapshot is a consistent copy of the store's state.
type Snapshot struct {
	Status        model.StreamStatus
	LatencyMs     int64
	LastEventID   string
	LastSignature string
	Candles       []model.SignedCandle
}

// Store is the single owner of the merged candle series and connection
// status. The controller is its only writer; consumers observe snapshots.
//
// The candle buffer is always sorted ascending by timestamp with no duplicate
// timestamps, regardless of the interleaving of live pushes and history
// hydration.
type Store struct {
	mu            sync.RWMutex
	status        model.StreamStatus
	latencyMs     int64
	lastEventID   string
	lastSignature string
	candles       []model.SignedCandle
	watchers      []chan struct{}
}

// NewStore creates a store in the disconnected state.
func NewStore() *Store {
	return &Store{status: model.StatusDisconnected}
}

// PushCandle merges a single live point into the buffer, keyed by timestamp
// with last-write-wins on collision.
func (s *Store) PushCandle(p model.SignedCandle) {
	s.mu.Lock()
	s.merge([]model.SignedCandle{p})
	s.lastSignature = p.Signature
	s.mu.Unlock()
	s.notify()
}

// HydrateCandles merges a bulk historical batch. An empty batch is a no-op
// and never clears existing data.
func (s *Store) HydrateCandles(candles []model.SignedCandle) {
	if len(candles) == 0 {
		return
	}
	s.mu.Lock()
	s.merge(candles)
	s.mu.Unlock()
	s.notify()
}

// merge applies the dedup/sort/truncate rule. Caller holds the lock.
func (s *Store) merge(incoming []model.SignedCandle) {
	byTS := make(map[int64]model.SignedCandle, len(s.candles)+len(incoming))
	for _, c := range s.candles {
		byTS[c.Timestamp] = c
	}
	for _, c := range incoming {
		byTS[c.Timestamp] = c
	}

	merged := make([]model.SignedCandle, 0, len(byTS))
	for _, c := range byTS {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	if len(merged) > MaxPoints {
		merged = merged[len(merged)-MaxPoints:]
	}
	s.candles = merged
}

// SetStatus updates the connection status.
func (s *Store) SetStatus(status model.StreamStatus) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Status returns the current connection status.
func (s *Store) Status() model.StreamStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetLatency records the most recent event latency in milliseconds.
func (s *Store) SetLatency(ms int64) {
	s.mu.Lock()
	s.latencyMs = ms
	s.mu.Unlock()
}

// SetLastEventID records the resume cursor of the last received event.
func (s *Store) SetLastEventID(id string) {
	s.mu.Lock()
	s.lastEventID = id
	s.mu.Unlock()
}

// LastEventID returns the stored resume cursor.
func (s *Store) LastEventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEventID
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Status:        s.status,
		LatencyMs:     s.latencyMs,
		LastEventID:   s.lastEventID,
		LastSignature: s.lastSignature,
		Candles:       append([]model.SignedCandle(nil), s.candles...),
	}
}

// Subscribe returns a channel that receives a coalesced signal whenever the
// store changes. Slow consumers miss intermediate signals, never block
// the writer.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
