// Package stream implements the per-connection live feed session and the
// registry of open connections.
package stream

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/driftline/market-sandbox/internal/domain/model"
	"github.com/driftline/market-sandbox/internal/market"
	"github.com/driftline/market-sandbox/internal/signing"
)

// EventWriter is the transport half of a session: SSE and WebSocket handlers
// both implement it over their respective connections.
type EventWriter interface {
	WriteEvent(ev sse.Event) error
	WriteComment(comment string) error
}

// Options control session cadence. Zero values fall back to the wire
// contract defaults.
type Options struct {
	CandleInterval    time.Duration
	HeartbeatInterval time.Duration
	RetryMillis       uint
}

func (o Options) withDefaults() Options {
	if o.CandleInterval <= 0 {
		o.CandleInterval = time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 10 * time.Second
	}
	if o.RetryMillis == 0 {
		o.RetryMillis = 5000
	}
	return o
}

// Session owns the state of one live stream connection: the current sequence
// number, the carried-forward price, and the two timers driving emission.
// Nothing here is shared across connections.
type Session struct {
	signer    *signing.Signer
	opts      Options
	seq       int64
	lastPrice float64
	resumed   bool
}

// NewSession resolves the resume cursor and positions the generator so the
// first emitted candle is resumeSequence+1. An absent or invalid cursor
// starts at sequence 0, which itself is never emitted.
func NewSession(cursor string, signer *signing.Signer, opts Options) *Session {
	seq, ok := market.ParseSequence(cursor)
	if !ok {
		seq = 0
	}
	return &Session{
		signer:    signer,
		opts:      opts.withDefaults(),
		seq:       seq,
		lastPrice: market.ComputePrice(seq),
		resumed:   ok,
	}
}

// ResumeSequence reports where this session picked up the sequence space.
func (s *Session) ResumeSequence() int64 { return s.seq }

// Run emits the ready event, one immediate candle, then candles on a fixed
// interval and heartbeat comments on their own interval, until the context is
// cancelled or a write fails. Both tickers are released on every exit path;
// Run returns exactly once, so teardown cannot double-fire.
func (s *Session) Run(ctx context.Context, w EventWriter) error {
	ready, err := s.signer.BuildEnvelope(model.EventReady, map[string]any{
		"resumeSequence": s.seq,
		"resumed":        s.resumed,
		"intervalMs":     market.IntervalMs,
	})
	if err != nil {
		return err
	}
	if err := w.WriteEvent(sse.Event{Event: model.EventReady, Data: ready}); err != nil {
		return err
	}

	if err := s.emitCandle(w); err != nil {
		return err
	}

	candles := time.NewTicker(s.opts.CandleInterval)
	defer candles.Stop()
	heartbeat := time.NewTicker(s.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-candles.C:
			if err := s.emitCandle(w); err != nil {
				return err
			}
		case <-heartbeat.C:
			if err := w.WriteComment("hb"); err != nil {
				return err
			}
		}
	}
}

func (s *Session) emitCandle(w EventWriter) error {
	s.seq++
	snap := market.NewSnapshot(s.seq, s.lastPrice, time.Now().UnixMilli())

	change := round2(snap.Price - snap.Open)
	changePct := 0.0
	if snap.Open != 0 {
		changePct = round2(change / snap.Open * 100)
	}

	env, err := s.signer.BuildEnvelope(model.EventCandles, model.CandleTick{
		CandleSnapshot: snap,
		Sequence:       s.seq,
		Change:         change,
		ChangePercent:  changePct,
	})
	if err != nil {
		return err
	}

	s.lastPrice = snap.Price
	return w.WriteEvent(sse.Event{
		Id:    strconv.FormatInt(s.seq, 10),
		Event: model.EventCandles,
		Retry: s.opts.RetryMillis,
		Data:  env,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
