package stream

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/market-sandbox/internal/domain/model"
	"github.com/driftline/market-sandbox/internal/signing"
)

type captureWriter struct {
	mu       sync.Mutex
	events   []sse.Event
	comments []string
	failAt   int // fail the n-th event write (1-based), 0 = never
}

func (w *captureWriter) WriteEvent(ev sse.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	if w.failAt > 0 && len(w.events) >= w.failAt {
		return errors.New("write failed")
	}
	return nil
}

func (w *captureWriter) WriteComment(comment string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.comments = append(w.comments, comment)
	return nil
}

func (w *captureWriter) snapshot() ([]sse.Event, []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sse.Event(nil), w.events...), append([]string(nil), w.comments...)
}

func testSigner(t *testing.T) *signing.Signer {
	t.Helper()
	s, err := signing.New("session-test-secret", false, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func fastOpts() Options {
	return Options{
		CandleInterval:    5 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
		RetryMillis:       5000,
	}
}

func TestSession_ReadyThenSequentialCandles(t *testing.T) {
	signer := testSigner(t)
	w := &captureWriter{}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	sess := NewSession("", signer, fastOpts())
	assert.Equal(t, int64(0), sess.ResumeSequence())
	require.NoError(t, sess.Run(ctx, w))

	events, _ := w.snapshot()
	require.GreaterOrEqual(t, len(events), 3)

	// ready comes first and never carries an id
	assert.Equal(t, model.EventReady, events[0].Event)
	assert.Empty(t, events[0].Id)

	// candles start at sequence 1 and advance by exactly one
	for i, ev := range events[1:] {
		assert.Equal(t, model.EventCandles, ev.Event)
		assert.Equal(t, strconv.Itoa(i+1), ev.Id)
		assert.Equal(t, uint(5000), ev.Retry)

		env, ok := ev.Data.(model.Envelope)
		require.True(t, ok)
		verified, err := signer.Verify(env)
		require.NoError(t, err)
		assert.True(t, verified)
	}
}

func TestSession_ResumeCursor(t *testing.T) {
	signer := testSigner(t)
	w := &captureWriter{}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	sess := NewSession("5", signer, fastOpts())
	assert.Equal(t, int64(5), sess.ResumeSequence())
	require.NoError(t, sess.Run(ctx, w))

	events, _ := w.snapshot()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, model.EventReady, events[0].Event)
	assert.Equal(t, "6", events[1].Id, "first candle after cursor 5 must be sequence 6")
}

func TestSession_InvalidCursorStartsFresh(t *testing.T) {
	signer := testSigner(t)

	for _, cursor := range []string{"abc", "-5", "1e3"} {
		sess := NewSession(cursor, signer, fastOpts())
		assert.Equal(t, int64(0), sess.ResumeSequence(), "cursor %q", cursor)
	}
}

func TestSession_SameCursorSamePrices(t *testing.T) {
	signer := testSigner(t)

	run := func() model.Envelope {
		w := &captureWriter{}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
		defer cancel()
		require.NoError(t, NewSession("10", signer, fastOpts()).Run(ctx, w))
		events, _ := w.snapshot()
		require.GreaterOrEqual(t, len(events), 2)
		return events[1].Data.(model.Envelope)
	}

	first := run()
	second := run()

	a, ok := first.Data.(model.CandleTick)
	require.True(t, ok)
	b, ok := second.Data.(model.CandleTick)
	require.True(t, ok)

	assert.Equal(t, a.Sequence, b.Sequence)
	assert.Equal(t, a.Price, b.Price)
	assert.Equal(t, a.High, b.High)
	assert.Equal(t, a.Low, b.Low)
	assert.Equal(t, a.Volume, b.Volume)
}

func TestSession_Heartbeats(t *testing.T) {
	signer := testSigner(t)
	w := &captureWriter{}

	opts := Options{
		CandleInterval:    50 * time.Millisecond,
		HeartbeatInterval: 5 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	require.NoError(t, NewSession("", signer, opts).Run(ctx, w))

	_, comments := w.snapshot()
	assert.NotEmpty(t, comments, "heartbeats must fire independently of candle cadence")
}

func TestSession_WriteErrorStops(t *testing.T) {
	signer := testSigner(t)
	w := &captureWriter{failAt: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := NewSession("", signer, fastOpts()).Run(ctx, w)
	require.Error(t, err)

	events, _ := w.snapshot()
	assert.Len(t, events, 2, "no emission after a failed write")
}
