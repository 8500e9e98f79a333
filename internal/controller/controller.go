// Package controller holds the runtime state machine: it arbitrates between
// mouse-mover and keyboard-bridge behavior as the link connects and
// disconnects, and owns the emission loop.
package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"keybridge/internal/hid"
	"keybridge/internal/keymap"
	"keybridge/internal/protocol"
	"keybridge/internal/scheduler"
	"keybridge/internal/textqueue"
	"keybridge/internal/ticks"
)

// Mode is the logical operating mode. Exactly one value at any instant,
// owned exclusively by the Controller.
type Mode int

const (
	// ModeMouseMover periodically nudges the cursor to keep the host awake.
	ModeMouseMover Mode = iota
	// ModeKeyboardBridge replays inbound link writes as native HID input.
	ModeKeyboardBridge
)

func (m Mode) String() string {
	if m == ModeKeyboardBridge {
		return "keyboard_bridge"
	}
	return "mouse_mover"
}

// PresentedMode derives the effective display mode from the logical mode and
// the queue depth: queued characters keep the bridge presentation up even
// after the logical mode flipped back to mouse mover.
func PresentedMode(mode Mode, queueDepth int) Mode {
	if queueDepth > 0 || mode == ModeKeyboardBridge {
		return ModeKeyboardBridge
	}
	return ModeMouseMover
}

// countdown tracks the mouse-mover timer. While the mode is KeyboardBridge
// only pausedRemaining is meaningful; otherwise lastMoveAt/nextDelay are.
type countdown struct {
	lastMoveAt      uint32
	nextDelay       uint32
	pausedRemaining uint32
}

// DefaultCharIntervalMS is the pacing between drained characters.
const DefaultCharIntervalMS = 2

// indicatorWindowMS is how long the activity indicator stays lit after a
// mouse move.
const indicatorWindowMS = 500

// Options configures a Controller. Zero-value pacing fields fall back to
// defaults.
type Options struct {
	Clock          ticks.Clock
	Queue          *textqueue.Queue
	Output         hid.Device
	Scheduler      *scheduler.Scheduler
	Log            *zap.SugaredLogger
	CharIntervalMS int
	// MoveSettle is the pause between the two halves of a mouse nudge.
	MoveSettle time.Duration
}

// Controller is the single source of truth for the operating mode and the
// mouse-mover countdown. Link callbacks mutate it from the transport
// goroutine; the Run loop reads it every tick.
type Controller struct {
	clock ticks.Clock
	queue *textqueue.Queue
	out   hid.Device
	sched *scheduler.Scheduler
	log   *zap.SugaredLogger

	charInterval uint32
	moveSettle   time.Duration

	// outMu serializes complete taps on the output device: a discrete key
	// from the link goroutine never interleaves inside a drained character's
	// press/release pair.
	outMu sync.Mutex

	mu          sync.Mutex
	mode        Mode
	connected   bool
	cd          countdown
	indicatorAt uint32
	indicatorOn bool

	// lastCharAt is touched only by the Run loop.
	lastCharAt uint32

	stats     stats
	startWall time.Time

	refresh chan struct{}
}

// New creates a controller in mouse-mover mode with a freshly drawn delay.
func New(opts Options) *Controller {
	interval := opts.CharIntervalMS
	if interval <= 0 {
		interval = DefaultCharIntervalMS
	}
	settle := opts.MoveSettle
	if settle < 0 {
		settle = 0
	}

	c := &Controller{
		clock:        opts.Clock,
		queue:        opts.Queue,
		out:          opts.Output,
		sched:        opts.Scheduler,
		log:          opts.Log,
		charInterval: uint32(interval),
		moveSettle:   settle,
		startWall:    time.Now(),
		refresh:      make(chan struct{}, 1),
	}
	now := c.clock.Millis()
	c.cd = countdown{lastMoveAt: now, nextDelay: c.sched.NextDelay()}
	c.lastCharAt = now
	return c
}

// Refresh signals presenters that state worth redrawing changed. The channel
// never blocks a writer; a pending signal coalesces.
func (c *Controller) Refresh() <-chan struct{} {
	return c.refresh
}

func (c *Controller) signalRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// HandleConnect switches to keyboard-bridge mode, freezing the mouse-mover
// countdown. A connect while already bridged is a no-op.
func (c *Controller) HandleConnect() {
	c.mu.Lock()
	if c.mode == ModeKeyboardBridge {
		c.connected = true
		c.mu.Unlock()
		return
	}
	now := c.clock.Millis()
	elapsed := ticks.Elapsed(c.cd.lastMoveAt, now)
	if elapsed < c.cd.nextDelay {
		c.cd.pausedRemaining = c.cd.nextDelay - elapsed
	} else {
		c.cd.pausedRemaining = 0
	}
	c.mode = ModeKeyboardBridge
	c.connected = true
	remaining := c.cd.pausedRemaining
	c.mu.Unlock()

	c.log.Infow("peer connected, entering keyboard bridge mode",
		"paused_remaining_ms", remaining)
	c.signalRefresh()
}

// HandleDisconnect switches back to mouse-mover mode. The countdown resumes
// from the paused remainder when one was stored, otherwise a fresh random
// delay is drawn. The remainder is consumed exactly once.
func (c *Controller) HandleDisconnect() {
	c.mu.Lock()
	if c.mode == ModeMouseMover {
		c.connected = false
		c.mu.Unlock()
		return
	}
	now := c.clock.Millis()
	c.cd.lastMoveAt = now
	if c.cd.pausedRemaining > 0 {
		c.cd.nextDelay = c.cd.pausedRemaining
	} else {
		c.cd.nextDelay = c.sched.NextDelay()
	}
	c.cd.pausedRemaining = 0
	c.mode = ModeMouseMover
	c.connected = false
	delay := c.cd.nextDelay
	c.mu.Unlock()

	c.log.Infow("peer disconnected, resuming mouse mover mode",
		"next_move_in_ms", delay)
	c.signalRefresh()
}

// EnqueueText filters and queues inbound text for paced emission. Called
// from the link goroutine; never blocks. Returns the admitted count.
func (c *Controller) EnqueueText(data []byte) int {
	admitted := c.queue.Enqueue(data)
	if admitted < len(data) {
		c.log.Debugw("text write truncated or filtered",
			"received", len(data), "admitted", admitted, "queued", c.queue.Depth())
	} else {
		c.log.Debugw("text queued", "admitted", admitted, "queued", c.queue.Depth())
	}
	c.signalRefresh()
	return admitted
}

// HandleKey emits a discrete key event immediately, bypassing the text
// queue. Called from the link goroutine; a burst of queued text may
// therefore interleave behind it, which is the intended ordering exception.
func (c *Controller) HandleKey(ev protocol.KeyEvent) {
	tap := keymap.Translate(ev.Modifiers, ev.Keycode)
	if !tap.HasPrimary() && len(tap.Modifiers) == 0 {
		c.log.Warnw("discarding unmappable key event",
			"modifiers", ev.Modifiers, "keycode", ev.Keycode)
		return
	}

	c.outMu.Lock()
	defer c.outMu.Unlock()

	for _, m := range tap.Modifiers {
		if err := c.out.PressSpecial(m); err != nil {
			c.log.Warnw("press modifier failed", "key", m.String(), "error", err)
		}
	}
	switch {
	case tap.Special != keymap.SpecialNone:
		if err := c.out.PressSpecial(tap.Special); err != nil {
			c.log.Warnw("press key failed", "key", tap.Special.String(), "error", err)
		}
	case tap.Char != 0:
		if err := c.out.PressChar(tap.Char); err != nil {
			c.log.Warnw("press char failed", "error", err)
		}
	}
	if err := c.out.ReleaseAll(); err != nil {
		c.log.Warnw("release failed", "error", err)
	}

	if tap.HasPrimary() {
		c.stats.keys.Add(1)
	}
	c.signalRefresh()
}

// Tick runs one iteration of the main loop: drain at most one queued
// character, then evaluate the mouse mover when idle.
func (c *Controller) Tick() {
	now := c.clock.Millis()

	if c.queue.Depth() > 0 && ticks.Elapsed(c.lastCharAt, now) >= c.charInterval {
		if ch, ok := c.queue.DequeueOne(); ok {
			c.typeChar(ch)
			c.lastCharAt = now
		}
	}

	c.mu.Lock()
	mode := c.mode
	cd := c.cd
	if c.indicatorOn && ticks.Elapsed(c.indicatorAt, now) > indicatorWindowMS {
		c.indicatorOn = false
	}
	c.mu.Unlock()

	// Mouse moves only happen in mover mode with an empty queue, so motion
	// never interleaves with keystroke emission.
	if mode == ModeMouseMover && c.queue.Depth() == 0 {
		if scheduler.IsDue(cd.lastMoveAt, cd.nextDelay, now) {
			c.moveMouse(now)
		}
	}
}

// Run ticks the controller until the context is canceled. The cadence is a
// fixed poll rather than an event-driven sleep.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Controller) typeChar(ch byte) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	if err := c.out.PressChar(ch); err != nil {
		c.log.Warnw("type char failed", "error", err)
	}
	if err := c.out.ReleaseAll(); err != nil {
		c.log.Warnw("release failed", "error", err)
	}
	c.stats.keys.Add(1)
	c.signalRefresh()
}

// moveMouse performs the minimal reversible nudge: one unit right, one unit
// left, leaving the cursor where it was.
func (c *Controller) moveMouse(now uint32) {
	c.outMu.Lock()
	if err := c.out.MoveMouse(1, 0); err != nil {
		c.log.Warnw("mouse move failed", "error", err)
	}
	if c.moveSettle > 0 {
		time.Sleep(c.moveSettle)
	}
	if err := c.out.MoveMouse(-1, 0); err != nil {
		c.log.Warnw("mouse move failed", "error", err)
	}
	c.outMu.Unlock()

	c.stats.moves.Add(1)

	c.mu.Lock()
	c.cd.lastMoveAt = now
	c.cd.nextDelay = c.sched.NextDelay()
	c.indicatorAt = now
	c.indicatorOn = true
	delay := c.cd.nextDelay
	c.mu.Unlock()

	c.log.Infow("mouse moved", "count", c.stats.moves.Load(), "next_move_in_ms", delay)
	c.signalRefresh()
}
