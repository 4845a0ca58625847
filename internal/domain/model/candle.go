package model

// CandleSnapshot represents a single OHLCV sample of the synthetic feed.
// Timestamps are milliseconds since epoch; all numeric fields are rounded to
// two decimal places by the generator.
type CandleSnapshot struct {
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// SignedCandle is a candle snapshot together with the HMAC signature it was
// served (or received) with. The client store keys these by Timestamp.
type SignedCandle struct {
	CandleSnapshot
	Signature string `json:"signature"`
}

// CandleTick is the payload carried by a live price.candles event: the
// snapshot plus fields derived from it.
type CandleTick struct {
	CandleSnapshot
	Sequence      int64   `json:"sequence"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Event type names used on the wire.
const (
	EventReady   = "ready"
	EventCandles = "price.candles"
)

// EnvelopeSource marks the origin of every payload this service emits.
const EnvelopeSource = "sandbox"

// Envelope is the signed wire unit wrapping every event payload. Signature is
// a hex-encoded HMAC-SHA256 over the canonical serialization of
// {event, data, ts, source}; see the signing package.
type Envelope struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	TS        int64  `json:"ts"`
	Source    string `json:"source"`
	Signature string `json:"signature"`
}

// StreamStatus is the client-visible connection state.
type StreamStatus string

const (
	StatusDisconnected StreamStatus = "disconnected"
	StatusConnected    StreamStatus = "connected"
	StatusPaused       StreamStatus = "paused"
	StatusError        StreamStatus = "error"
)
