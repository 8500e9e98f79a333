package keymap

import (
	"fmt"
	"strings"
)

// namedKeycodes maps lower-case key names to HID keycodes, for parsing the
// companion's chord syntax (e.g. "ctrl+shift+t", "enter", "f5").
var namedKeycodes = map[string]byte{
	"enter":     0x28,
	"return":    0x28,
	"escape":    0x29,
	"esc":       0x29,
	"backspace": 0x2A,
	"tab":       0x2B,
	"space":     0x2C,
	"insert":    0x49,
	"home":      0x4A,
	"pageup":    0x4B,
	"delete":    0x4C,
	"del":       0x4C,
	"end":       0x4D,
	"pagedown":  0x4E,
	"right":     0x4F,
	"left":      0x50,
	"down":      0x51,
	"up":        0x52,
	"capslock":  0x39,
	"f1":        0x3A,
	"f2":        0x3B,
	"f3":        0x3C,
	"f4":        0x3D,
	"f5":        0x3E,
	"f6":        0x3F,
	"f7":        0x40,
	"f8":        0x41,
	"f9":        0x42,
	"f10":       0x43,
	"f11":       0x44,
	"f12":       0x45,
}

// shiftedSymbols maps shifted punctuation and digits back to the base key
// character that produces them.
var shiftedSymbols = map[byte]byte{
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
	'_': '-', '+': '=', '{': '[', '}': ']', '|': '\\',
	':': ';', '"': '\'', '~': '`', '<': ',', '>': '.', '?': '/',
}

// charKeycode returns the HID keycode for a plain printable character and
// whether shift is required to produce it.
func charKeycode(c byte) (keycode byte, shift bool, ok bool) {
	if base, shifted := shiftedSymbols[c]; shifted {
		kc, _, baseOK := charKeycode(base)
		return kc, true, baseOK
	}
	switch {
	case c >= 'a' && c <= 'z':
		return 0x04 + (c - 'a'), false, true
	case c >= 'A' && c <= 'Z':
		return 0x04 + (c - 'A'), true, true
	case c >= '1' && c <= '9':
		return 0x1E + (c - '1'), false, true
	case c == '0':
		return 0x27, false, true
	case c == ' ':
		return 0x2C, false, true
	case c == '-':
		return 0x2D, false, true
	case c == '=':
		return 0x2E, false, true
	case c == '[':
		return 0x2F, false, true
	case c == ']':
		return 0x30, false, true
	case c == '\\':
		return 0x31, false, true
	case c == ';':
		return 0x33, false, true
	case c == '\'':
		return 0x34, false, true
	case c == '`':
		return 0x35, false, true
	case c == ',':
		return 0x36, false, true
	case c == '.':
		return 0x37, false, true
	case c == '/':
		return 0x38, false, true
	}
	return 0, false, false
}

// modifierBit returns the wire bit for a modifier name, or 0.
func modifierBit(name string) byte {
	switch name {
	case "ctrl", "control":
		return ModLeftCtrl
	case "shift":
		return ModLeftShift
	case "alt", "option":
		return ModLeftAlt
	case "gui", "cmd", "meta", "super", "win":
		return ModLeftGUI
	case "rctrl":
		return ModRightCtrl
	case "rshift":
		return ModRightShift
	case "ralt":
		return ModRightAlt
	case "rgui":
		return ModRightGUI
	}
	return 0
}

// ParseChord parses a chord string like "ctrl+shift+t", "cmd+space", "enter",
// or "A" into the wire (modifiers, keycode) pair. The final element is the
// primary key; everything before it must be a modifier name.
func ParseChord(chord string) (modifiers, keycode byte, err error) {
	s := strings.TrimSpace(chord)
	if s == "" {
		return 0, 0, fmt.Errorf("empty chord")
	}

	// A trailing separator means the primary key is the '+' character.
	keyPart := "+"
	parts := strings.Split(s, "+")
	if last := parts[len(parts)-1]; last != "" {
		keyPart = last
	}
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			continue
		}
		bit := modifierBit(strings.ToLower(part))
		if bit == 0 {
			return 0, 0, fmt.Errorf("unknown modifier %q in chord %q", part, chord)
		}
		modifiers |= bit
	}

	if kc, ok := namedKeycodes[strings.ToLower(keyPart)]; ok {
		return modifiers, kc, nil
	}
	if len(keyPart) == 1 {
		kc, shift, ok := charKeycode(keyPart[0])
		if !ok {
			return 0, 0, fmt.Errorf("unmappable key %q in chord %q", keyPart, chord)
		}
		if shift {
			modifiers |= ModLeftShift
		}
		return modifiers, kc, nil
	}
	return 0, 0, fmt.Errorf("unknown key %q in chord %q", keyPart, chord)
}
