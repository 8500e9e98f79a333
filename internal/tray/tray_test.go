package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keybridge/internal/controller"
)

func TestRenderMode(t *testing.T) {
	assert.Equal(t, "Mode: keyboard bridge",
		renderMode(controller.Snapshot{EffectiveMode: "keyboard_bridge"}))
	assert.Equal(t, "Mode: mouse mover (moved)",
		renderMode(controller.Snapshot{EffectiveMode: "mouse_mover", Indicator: true}))
	assert.Equal(t, "Mode: mouse mover (next in 12s)",
		renderMode(controller.Snapshot{EffectiveMode: "mouse_mover", NextMoveInMS: 12400}))
	assert.Equal(t, "Mode: mouse mover",
		renderMode(controller.Snapshot{EffectiveMode: "mouse_mover"}))
}

func TestRenderLink(t *testing.T) {
	assert.Equal(t, "Link: no companion",
		renderLink(controller.Snapshot{}))
	assert.Equal(t, "Link: companion connected",
		renderLink(controller.Snapshot{Connected: true}))
	assert.Equal(t, "Link: companion connected (7 queued)",
		renderLink(controller.Snapshot{Connected: true, QueueDepth: 7}))
	assert.Equal(t, "Link: draining backlog (3 queued)",
		renderLink(controller.Snapshot{QueueDepth: 3}))
}
