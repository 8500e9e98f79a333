// Package scheduler decides when the mouse mover fires and picks the
// jittered delay before the next move.
package scheduler

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"keybridge/internal/ticks"
)

// Default delay bounds in milliseconds. The delay is randomized rather than
// fixed so the moves never form a perfectly periodic signature and never
// synchronize with other periodic host activity.
const (
	DefaultMinDelayMS = 7000
	DefaultMaxDelayMS = 60000
)

// Scheduler draws uniformly random inter-move delays.
type Scheduler struct {
	min uint32
	max uint32
	rng *rand.Rand
	log *zap.SugaredLogger
}

// New creates a scheduler drawing delays in [minMS, maxMS]. Invalid bounds
// fall back to the defaults.
func New(minMS, maxMS int, log *zap.SugaredLogger) *Scheduler {
	if minMS <= 0 || maxMS < minMS {
		minMS = DefaultMinDelayMS
		maxMS = DefaultMaxDelayMS
	}
	return &Scheduler{
		min: uint32(minMS),
		max: uint32(maxMS),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		log: log,
	}
}

// NextDelay draws the next inter-move delay, inclusive of both bounds.
func (s *Scheduler) NextDelay() uint32 {
	delay := s.min + uint32(s.rng.Int63n(int64(s.max-s.min)+1))
	s.log.Debugw("next mouse move scheduled", "delay_ms", delay)
	return delay
}

// IsDue reports whether the countdown that started at lastMove with the
// given delay has expired at now, safely across counter wraparound.
func IsDue(lastMove, delay, now uint32) bool {
	return ticks.Elapsed(lastMove, now) >= delay
}
