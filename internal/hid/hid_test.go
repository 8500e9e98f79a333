package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"keybridge/internal/keymap"
)

func TestRecorderCapturesTapSequence(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.PressSpecial(keymap.KeyLeftShift))
	require.NoError(t, r.PressChar('A'))
	require.NoError(t, r.ReleaseAll())
	require.NoError(t, r.MoveMouse(1, 0))

	assert.Equal(t, []string{"special:LeftShift", `char:"A"`, "release", "move:1,0"}, r.Ops())

	r.Reset()
	assert.Empty(t, r.Ops())
}

func TestOpenNullBackend(t *testing.T) {
	dev, err := Open("null", "keybridge", zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NoError(t, dev.PressChar('x'))
	assert.NoError(t, dev.MoveMouse(-1, 0))
	assert.NoError(t, dev.Close())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("telepathy", "keybridge", zap.NewNop().Sugar())
	assert.Error(t, err)
}
