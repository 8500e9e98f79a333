// Package tray presents daemon status in the system tray using
// getlantern/systray. It is a pure presenter: it reads snapshots and renders
// them, nothing flows back into the core except the quit action.
package tray

import (
	"fmt"
	"time"

	"github.com/getlantern/systray"

	"keybridge/internal/controller"
)

// StatusSource yields point-in-time state for rendering.
type StatusSource interface {
	Snapshot() controller.Snapshot
}

// Presenter renders snapshots into the tray menu.
type Presenter struct {
	source  StatusSource
	refresh <-chan struct{}
	onQuit  func()
	quitCh  chan struct{}
}

// New creates a tray presenter. refresh nudges a redraw between the periodic
// updates; onQuit runs when the user picks Quit.
func New(source StatusSource, refresh <-chan struct{}, onQuit func()) *Presenter {
	return &Presenter{
		source:  source,
		refresh: refresh,
		onQuit:  onQuit,
		quitCh:  make(chan struct{}),
	}
}

// Run starts the tray event loop (blocks until Stop or Quit)
func (p *Presenter) Run() {
	systray.Run(p.setup, p.exited)
}

// Stop stops the tray
func (p *Presenter) Stop() {
	systray.Quit()
}

func (p *Presenter) exited() {
	close(p.quitCh)
}

func (p *Presenter) setup() {
	systray.SetTitle("KeyBridge")
	systray.SetTooltip("KeyBridge")
	systray.SetIcon(getIcon())

	modeItem := systray.AddMenuItem("Mode: mouse mover", "")
	modeItem.Disable()
	linkItem := systray.AddMenuItem("Link: no companion", "")
	linkItem.Disable()
	countItem := systray.AddMenuItem("Keys: 0 / Moves: 0", "")
	countItem.Disable()
	uptimeItem := systray.AddMenuItem("Uptime: 00:00:00", "")
	uptimeItem.Disable()
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop the daemon")

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
			case <-p.refresh:
			case <-quitItem.ClickedCh:
				if p.onQuit != nil {
					p.onQuit()
				}
				systray.Quit()
				return
			case <-p.quitCh:
				return
			}

			snap := p.source.Snapshot()
			modeItem.SetTitle(renderMode(snap))
			linkItem.SetTitle(renderLink(snap))
			countItem.SetTitle(fmt.Sprintf("Keys: %d / Moves: %d", snap.KeyCount, snap.MoveCount))
			uptimeItem.SetTitle("Uptime: " + snap.Uptime)
		}
	}()
}

func renderMode(snap controller.Snapshot) string {
	switch {
	case snap.EffectiveMode == "keyboard_bridge":
		return "Mode: keyboard bridge"
	case snap.Indicator:
		return "Mode: mouse mover (moved)"
	case snap.NextMoveInMS > 0:
		return fmt.Sprintf("Mode: mouse mover (next in %ds)", snap.NextMoveInMS/1000)
	default:
		return "Mode: mouse mover"
	}
}

func renderLink(snap controller.Snapshot) string {
	switch {
	case snap.Connected && snap.QueueDepth > 0:
		return fmt.Sprintf("Link: companion connected (%d queued)", snap.QueueDepth)
	case snap.Connected:
		return "Link: companion connected"
	case snap.QueueDepth > 0:
		return fmt.Sprintf("Link: draining backlog (%d queued)", snap.QueueDepth)
	default:
		return "Link: no companion"
	}
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	// A valid 16x16 32-bit ICO file with correct size and DIB header
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00, // Size: 1024 (pixels) + 40 (header) + 32 (mask) = 1096 bytes
		0x16, 0x00, 0x00, 0x00, // Offset
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // Size
		0x10, 0x00, 0x00, 0x00, // Width
		0x20, 0x00, 0x00, 0x00, // Height (16 * 2 for icon)
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	// The rest (pixels and mask) can stay 0 for transparency
	return icon
}
