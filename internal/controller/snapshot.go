package controller

import (
	"sync/atomic"
	"time"

	"keybridge/internal/ticks"
)

// stats are the monotonically increasing emission counters. Key presses are
// counted from both the callback context (discrete events) and the Run loop
// (drained characters), so the counters are atomic.
type stats struct {
	keys  atomic.Uint64
	moves atomic.Uint64
}

// Snapshot is the read-only state surface consumed by presenters. Nothing
// flows back from a presenter into the core.
type Snapshot struct {
	Mode          string `json:"mode"`
	EffectiveMode string `json:"effective_mode"`
	Connected     bool   `json:"connected"`
	QueueDepth    int    `json:"queue_depth"`
	KeyCount      uint64 `json:"key_count"`
	MoveCount     uint64 `json:"move_count"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	Uptime        string `json:"uptime"`
	NextMoveInMS  uint32 `json:"next_move_in_ms"`
	NextDelayMS   uint32 `json:"next_delay_ms"`
	Indicator     bool   `json:"indicator"`
}

// Snapshot captures the current state. Safe to call from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	now := c.clock.Millis()
	depth := c.queue.Depth()

	c.mu.Lock()
	mode := c.mode
	connected := c.connected
	cd := c.cd
	indicator := c.indicatorOn
	c.mu.Unlock()

	var nextIn uint32
	switch mode {
	case ModeMouseMover:
		if elapsed := ticks.Elapsed(cd.lastMoveAt, now); elapsed < cd.nextDelay {
			nextIn = cd.nextDelay - elapsed
		}
	case ModeKeyboardBridge:
		nextIn = cd.pausedRemaining
	}

	uptime := uint64(time.Since(c.startWall) / time.Second)
	return Snapshot{
		Mode:          mode.String(),
		EffectiveMode: PresentedMode(mode, depth).String(),
		Connected:     connected,
		QueueDepth:    depth,
		KeyCount:      c.stats.keys.Load(),
		MoveCount:     c.stats.moves.Load(),
		UptimeSeconds: uptime,
		Uptime:        ticks.FormatHMS(uptime),
		NextMoveInMS:  nextIn,
		NextDelayMS:   cd.nextDelay,
		Indicator:     indicator,
	}
}
