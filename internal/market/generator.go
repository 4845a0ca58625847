// Package market synthesizes the deterministic pseudo-market candle feed.
//
// The sequence number is the sole entropy source: every price is a pure
// function of its sequence, so a client resuming a stream with a cursor
// regenerates exactly the series it already saw.
package market

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/driftline/market-sandbox/internal/domain/model"
)

const (
	// BasePrice anchors the synthetic series.
	BasePrice = 68120.0

	// IntervalMs is the spacing between consecutive candles.
	IntervalMs = 1000

	wavePeriod  = 6.0
	waveAmp     = 60.0
	driftPeriod = 24.0
	driftAmp    = 25.0
	noiseAmp    = 20.0

	wickSpread = 15.0
	volumeBase = 180.0
	volumeSpan = 820.0

	// Classic fractional-sine hash constants. Not cryptographic, just stable.
	hashK = 12.9898
	hashM = 43758.5453
)

// SeededRandom returns a deterministic value in [0, 1) for the given seed.
func SeededRandom(seed int64) float64 {
	x := math.Sin(float64(seed)*hashK) * hashM
	return x - math.Floor(x)
}

// ComputePrice derives the price for a sequence number: base level plus a
// primary sinusoidal wave, a slower drift, and seeded noise. Rounded to two
// decimals so chained open/close values stay consistent.
func ComputePrice(seq int64) float64 {
	wave := waveAmp * math.Sin(float64(seq)/wavePeriod)
	drift := driftAmp * math.Sin(float64(seq)/driftPeriod)
	noise := (SeededRandom(seq) - 0.5) * 2 * noiseAmp
	return round2(BasePrice + wave + drift + noise)
}

// NewSnapshot builds the candle for a sequence number. The open carries the
// previous price forward; high/low widen around the open/price bracket using
// distinct noise seeds so the wicks do not correlate with the body.
func NewSnapshot(seq int64, prevPrice float64, ts int64) model.CandleSnapshot {
	price := ComputePrice(seq)
	open := round2(prevPrice)

	upper := math.Max(open, price)
	lower := math.Min(open, price)
	high := round2(upper + SeededRandom(seq+1)*wickSpread)
	low := round2(lower - SeededRandom(seq+2)*wickSpread)
	volume := round2(volumeBase + SeededRandom(seq+3)*volumeSpan)

	return model.CandleSnapshot{
		Price:     price,
		Open:      open,
		High:      high,
		Low:       low,
		Volume:    volume,
		Timestamp: ts,
	}
}

// BuildHistory generates count sequential candles ending at refTs, spaced by
// IntervalMs and chained so each candle opens at the previous close. The
// series occupies sequences 1..count, starting from ComputePrice(0), which is
// the same sequence space the live stream continues in.
func BuildHistory(count int, refTs int64) []model.CandleSnapshot {
	if count <= 0 {
		return []model.CandleSnapshot{}
	}

	out := make([]model.CandleSnapshot, 0, count)
	prev := ComputePrice(0)
	for i := 1; i <= count; i++ {
		ts := refTs - int64(count-i)*IntervalMs
		c := NewSnapshot(int64(i), prev, ts)
		out = append(out, c)
		prev = c.Price
	}
	return out
}

// ParseSequence parses a resumption cursor. Anything that is not a
// non-negative integer means "no cursor": the caller starts fresh.
func ParseSequence(cursor string) (int64, bool) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// NowMs returns the current wall clock in epoch milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
