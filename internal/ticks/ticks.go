// Package ticks provides wraparound-safe elapsed-time arithmetic over a
// free-running millisecond counter.
package ticks

import (
	"fmt"
	"math"
	"time"
)

// Max is the largest value the counter reaches before wrapping to zero.
const Max = math.MaxUint32

// Elapsed returns the duration in milliseconds between start and current,
// treating the counter as having wrapped exactly once when current < start.
// All countdown and timeout decisions must go through this function; a direct
// subtraction misbehaves across the wrap boundary.
func Elapsed(start, current uint32) uint32 {
	if current >= start {
		return current - start
	}
	return (math.MaxUint32 - start) + current + 1
}

// Clock produces the free-running counter value. The production clock derives
// it from a monotonic start instant; tests substitute a manual clock.
type Clock interface {
	Millis() uint32
}

// WallClock is the production Clock. The counter wraps roughly every 49.7
// days, which Elapsed handles.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a Clock counting milliseconds from now.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Millis returns milliseconds since the clock was created, modulo 2^32.
func (c *WallClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// ManualClock is a Clock advanced by hand, for tests.
type ManualClock struct {
	Now uint32
}

// Millis returns the manually set counter value.
func (c *ManualClock) Millis() uint32 { return c.Now }

// Advance moves the counter forward by ms, wrapping naturally.
func (c *ManualClock) Advance(ms uint32) { c.Now += ms }

// FormatHMS renders a second count as HH:MM:SS.
func FormatHMS(seconds uint64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
