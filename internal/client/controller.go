package client

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/driftline/market-sandbox/internal/domain/model"
	"github.com/driftline/market-sandbox/internal/signing"
)

// Options configure a Controller. Zero values fall back to the wire
// contract defaults.
type Options struct {
	BaseURL          string
	HistoryCount     int
	HeartbeatTimeout time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration

	// VerifySecret enables envelope signature verification; envelopes that
	// fail to verify are dropped, never stored.
	VerifySecret string

	// Opener and History override the HTTP transports (tests, embedding).
	Opener  StreamOpener
	History HistoryFetcher

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.HistoryCount <= 0 {
		o.HistoryCount = 360
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = 12 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 5 * time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.Opener == nil {
		o.Opener = NewTransport(o.BaseURL, o.HTTPClient)
	}
	if o.History == nil {
		o.History = NewHistoryClient(o.BaseURL, nil)
	}
	return o
}

// Controller subscribes to the live stream and drives the state store. It is
// a single-goroutine state machine: transport events, the heartbeat watchdog,
// and the reconnect delay are all consumed by one loop, so no state here
// needs locking.
type Controller struct {
	store    *Store
	opts     Options
	verifier *signing.Signer
	log      zerolog.Logger

	// cursor is the resume point; owned exclusively by the Run goroutine.
	cursor string

	historyOnce sync.Once
}

// NewController creates a controller writing into store.
func NewController(store *Store, opts Options) (*Controller, error) {
	opts = opts.withDefaults()

	c := &Controller{store: store, opts: opts, log: opts.Logger}
	if opts.VerifySecret != "" {
		verifier, err := signing.New(opts.VerifySecret, false, opts.Logger)
		if err != nil {
			return nil, err
		}
		c.verifier = verifier
	}
	return c, nil
}

// Run drives the connect/consume/reconnect loop until ctx is cancelled.
// Cancellation closes the active subscription and abandons any pending
// reconnect delay; nothing leaks past return.
func (c *Controller) Run(ctx context.Context) {
	defer c.store.SetStatus(model.StatusDisconnected)

	// one-shot history hydration, independent of stream startup
	c.historyOnce.Do(func() {
		go c.hydrate(ctx)
	})

	retry := newBackoff(c.opts.BackoffBase, c.opts.BackoffMax)
	for {
		conn, err := c.opts.Opener.Open(ctx, c.cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("stream open failed")
			c.store.SetStatus(model.StatusError)
			if !c.pause(ctx, retry.Next()) {
				return
			}
			continue
		}

		c.store.SetStatus(model.StatusConnected)
		retry.Reset()

		c.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		if !c.pause(ctx, retry.Next()) {
			return
		}
	}
}

// pause enters the paused state and waits out the reconnect delay. Returns
// false when the context ended first.
func (c *Controller) pause(ctx context.Context, delay time.Duration) bool {
	c.store.SetStatus(model.StatusPaused)
	c.log.Debug().Dur("delay", delay).Msg("reconnect scheduled")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// consume drains one connection until it errors, goes stale, or ctx ends.
func (c *Controller) consume(ctx context.Context, conn StreamConn) {
	watchdog := time.NewTimer(c.opts.HeartbeatTimeout)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-watchdog.C:
			c.log.Warn().Msg("no events within heartbeat window, presuming stale")
			return
		case ev, ok := <-conn.Events():
			if !ok {
				c.store.SetStatus(model.StatusError)
				return
			}
			c.handleEvent(ev)
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(c.opts.HeartbeatTimeout)
		}
	}
}

func (c *Controller) handleEvent(ev Event) {
	// comments and ready events count as liveness only
	if ev.Comment || ev.Name == model.EventReady {
		c.store.SetStatus(model.StatusConnected)
		return
	}
	if ev.Name != model.EventCandles {
		return
	}

	var env model.Envelope
	if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
		c.log.Warn().Err(err).Msg("malformed envelope")
		return
	}

	if c.verifier != nil {
		ok, err := c.verifier.Verify(env)
		if err != nil || !ok {
			c.log.Warn().Err(err).Str("signature", env.Signature).Msg("envelope rejected")
			return
		}
	}

	tick, err := decodeTick(env.Data)
	if err != nil {
		c.log.Warn().Err(err).Msg("malformed candle payload")
		return
	}

	c.store.PushCandle(model.SignedCandle{
		CandleSnapshot: tick.CandleSnapshot,
		Signature:      env.Signature,
	})

	if ev.ID != "" {
		c.cursor = ev.ID
	} else {
		// no id on the frame: fall back to a timestamp-derived cursor
		c.cursor = strconv.FormatInt(tick.Timestamp, 10)
	}
	c.store.SetLastEventID(c.cursor)

	if latency := time.Now().UnixMilli() - env.TS; latency >= 0 {
		c.store.SetLatency(latency)
	}
}

func decodeTick(data any) (model.CandleTick, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return model.CandleTick{}, err
	}
	var tick model.CandleTick
	if err := json.Unmarshal(raw, &tick); err != nil {
		return model.CandleTick{}, err
	}
	return tick, nil
}

// hydrate fetches the history snapshot once and merges it into the store.
// Failures are logged and ignored; the live stream does not depend on it.
func (c *Controller) hydrate(ctx context.Context) {
	candles, err := c.opts.History.Fetch(ctx, c.opts.HistoryCount)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("history hydration failed")
		}
		return
	}
	c.store.HydrateCandles(candles)
}
