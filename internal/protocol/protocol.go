// Package protocol defines the binary frame format spoken over the link.
package protocol

import "errors"

// Channel identifiers. The link exposes two write-only channels: free text
// and discrete key events.
const (
	ChannelText byte = 0x01
	ChannelKey  byte = 0x02
)

// KeyPayloadSize is the exact payload length of a discrete key event:
// one modifier bitset byte followed by one keycode byte.
const KeyPayloadSize = 2

var (
	ErrEmptyFrame      = errors.New("protocol: empty frame")
	ErrUnknownChannel  = errors.New("protocol: unknown channel")
	ErrShortKeyPayload = errors.New("protocol: key payload shorter than 2 bytes")
)

// Frame is one inbound write: a channel byte followed by the channel's
// payload.
type Frame struct {
	Channel byte
	Payload []byte
}

// KeyEvent is the decoded discrete-key payload. It is ephemeral: produced
// per write and consumed immediately, never queued.
type KeyEvent struct {
	Modifiers byte
	Keycode   byte
}

// EncodeText builds a text-channel frame around the given bytes.
func EncodeText(text []byte) []byte {
	buf := make([]byte, 1+len(text))
	buf[0] = ChannelText
	copy(buf[1:], text)
	return buf
}

// EncodeKey builds a discrete-key frame.
func EncodeKey(modifiers, keycode byte) []byte {
	return []byte{ChannelKey, modifiers, keycode}
}

// Decode parses wire bytes into a Frame. A key frame with a payload shorter
// than KeyPayloadSize is rejected here so it never reaches the HID path.
func Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	f := &Frame{Channel: data[0], Payload: data[1:]}
	switch f.Channel {
	case ChannelText:
		return f, nil
	case ChannelKey:
		if len(f.Payload) < KeyPayloadSize {
			return nil, ErrShortKeyPayload
		}
		return f, nil
	}
	return nil, ErrUnknownChannel
}

// Key returns the decoded key event of a key frame.
func (f *Frame) Key() KeyEvent {
	return KeyEvent{Modifiers: f.Payload[0], Keycode: f.Payload[1]}
}
