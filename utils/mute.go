package utils

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// BatchMute throttles events by limiting count per interval.
type BatchMute struct {
	lock          sync.Mutex
	clock         clock.Clock
	batchTime     time.Time
	resetInterval time.Duration
	ctr           int
	max           int
}

func (b *BatchMute) increment(val int, t time.Time) (muted bool, skipped int) {
	if b.max == 0 || b.resetInterval == 0 {
		return muted, skipped
	}

	if b.ctr >= b.max {
		skipped = b.ctr - b.max
	}

	if t.Sub(b.batchTime) > b.resetInterval {
		b.ctr = 0
		b.batchTime = t
	}
	b.ctr += val

	return b.ctr > b.max, skipped
}

// Increment records a single event and reports whether muting applies.
// When an interval starts, skipped holds the events muted during the previous one.
func (b *BatchMute) Increment() (muting bool, skipped int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.increment(1, b.clock.Now().UTC())
}

// NewBatchMute creates a BatchMute with a reset interval and max count.
func NewBatchMute(resetInterval time.Duration, max int) *BatchMute {
	return NewBatchMuteWithClock(resetInterval, max, clock.New())
}

// NewBatchMuteWithClock is NewBatchMute with a custom time source.
func NewBatchMuteWithClock(resetInterval time.Duration, max int, clk clock.Clock) *BatchMute {
	return &BatchMute{
		clock:         clk,
		batchTime:     clk.Now().UTC(),
		resetInterval: resetInterval,
		max:           max,
	}
}
