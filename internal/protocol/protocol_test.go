package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	f, err := Decode(EncodeText([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, ChannelText, f.Channel)
	assert.Equal(t, []byte("hello"), f.Payload)
}

func TestDecodeEmptyTextPayload(t *testing.T) {
	f, err := Decode([]byte{ChannelText})
	require.NoError(t, err)
	assert.Empty(t, f.Payload)
}

func TestDecodeKey(t *testing.T) {
	f, err := Decode(EncodeKey(0x02, 0x04))
	require.NoError(t, err)
	assert.Equal(t, ChannelKey, f.Channel)
	assert.Equal(t, KeyEvent{Modifiers: 0x02, Keycode: 0x04}, f.Key())
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = Decode([]byte{ChannelKey, 0x02})
	assert.ErrorIs(t, err, ErrShortKeyPayload)

	_, err = Decode([]byte{ChannelKey})
	assert.ErrorIs(t, err, ErrShortKeyPayload)

	_, err = Decode([]byte{0x7F, 0x00})
	assert.ErrorIs(t, err, ErrUnknownChannel)
}
