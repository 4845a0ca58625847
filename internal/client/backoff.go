package client

import "time"

// backoff produces exponentially increasing reconnect delays: base on the
// first failure, doubling on each consecutive failure, capped at max.
type backoff struct {
	base time.Duration
	max  time.Duration
	next time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, next: base}
}

// Next returns the delay to wait before the upcoming attempt and advances
// the schedule.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset returns the schedule to the base delay. Called the moment a
// connection successfully opens.
func (b *backoff) Reset() {
	b.next = b.base
}
