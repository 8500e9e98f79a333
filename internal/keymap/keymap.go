// Package keymap translates protocol-level (modifier, keycode) pairs into
// concrete key-press actions using the standard USB HID keycode layout.
package keymap

// Modifier bit masks, one per modifier key, matching the wire format of the
// discrete-key channel.
const (
	ModLeftCtrl   byte = 0x01
	ModLeftShift  byte = 0x02
	ModLeftAlt    byte = 0x04
	ModLeftGUI    byte = 0x08
	ModRightCtrl  byte = 0x10
	ModRightShift byte = 0x20
	ModRightAlt   byte = 0x40
	ModRightGUI   byte = 0x80
)

// Special identifies a named, non-printable key.
type Special uint8

const (
	SpecialNone Special = iota

	// Modifier keys
	KeyLeftCtrl
	KeyLeftShift
	KeyLeftAlt
	KeyLeftGUI

	// Arrow keys
	KeyRightArrow
	KeyLeftArrow
	KeyDownArrow
	KeyUpArrow

	// Navigation cluster
	KeyInsert
	KeyHome
	KeyPageUp
	KeyDelete
	KeyEnd
	KeyPageDown

	// Function keys
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyEscape
	KeyCapsLock
)

var specialNames = map[Special]string{
	KeyLeftCtrl:   "LeftCtrl",
	KeyLeftShift:  "LeftShift",
	KeyLeftAlt:    "LeftAlt",
	KeyLeftGUI:    "LeftGUI",
	KeyRightArrow: "Right",
	KeyLeftArrow:  "Left",
	KeyDownArrow:  "Down",
	KeyUpArrow:    "Up",
	KeyInsert:     "Insert",
	KeyHome:       "Home",
	KeyPageUp:     "PageUp",
	KeyDelete:     "Delete",
	KeyEnd:        "End",
	KeyPageDown:   "PageDown",
	KeyF1:         "F1",
	KeyF2:         "F2",
	KeyF3:         "F3",
	KeyF4:         "F4",
	KeyF5:         "F5",
	KeyF6:         "F6",
	KeyF7:         "F7",
	KeyF8:         "F8",
	KeyF9:         "F9",
	KeyF10:        "F10",
	KeyF11:        "F11",
	KeyF12:        "F12",
	KeyEscape:     "Escape",
	KeyCapsLock:   "CapsLock",
}

func (s Special) String() string {
	if name, ok := specialNames[s]; ok {
		return name
	}
	return "None"
}

// Tap is the resolved action set for one discrete key event: modifiers are
// pressed first, then the primary key, then everything is released together.
// A Tap never models a held key.
type Tap struct {
	Modifiers []Special
	Special   Special
	Char      byte
}

// HasPrimary reports whether a primary key resolved. Modifiers alone may
// still be tapped when it did not.
func (t Tap) HasPrimary() bool {
	return t.Special != SpecialNone || t.Char != 0
}

// Translate resolves a (modifiers, keycode) pair. Named keys take precedence;
// otherwise the keycode converts to a printable character with the shift
// modifier's case/symbol substitution applied. Left and right variants of a
// modifier collapse to the left-side key.
func Translate(modifiers, keycode byte) Tap {
	shift := modifiers&(ModLeftShift|ModRightShift) != 0
	ctrl := modifiers&(ModLeftCtrl|ModRightCtrl) != 0
	alt := modifiers&(ModLeftAlt|ModRightAlt) != 0
	gui := modifiers&(ModLeftGUI|ModRightGUI) != 0

	var tap Tap
	if ctrl {
		tap.Modifiers = append(tap.Modifiers, KeyLeftCtrl)
	}
	if alt {
		tap.Modifiers = append(tap.Modifiers, KeyLeftAlt)
	}
	if gui {
		tap.Modifiers = append(tap.Modifiers, KeyLeftGUI)
	}
	if shift {
		tap.Modifiers = append(tap.Modifiers, KeyLeftShift)
	}

	if special := ToSpecial(keycode); special != SpecialNone {
		tap.Special = special
		return tap
	}
	tap.Char = ToASCII(keycode, shift)
	return tap
}

// ToSpecial maps a HID keycode to a named key, or SpecialNone.
func ToSpecial(keycode byte) Special {
	switch keycode {
	case 0x4F:
		return KeyRightArrow
	case 0x50:
		return KeyLeftArrow
	case 0x51:
		return KeyDownArrow
	case 0x52:
		return KeyUpArrow
	case 0x49:
		return KeyInsert
	case 0x4A:
		return KeyHome
	case 0x4B:
		return KeyPageUp
	case 0x4C:
		return KeyDelete
	case 0x4D:
		return KeyEnd
	case 0x4E:
		return KeyPageDown
	case 0x3A:
		return KeyF1
	case 0x3B:
		return KeyF2
	case 0x3C:
		return KeyF3
	case 0x3D:
		return KeyF4
	case 0x3E:
		return KeyF5
	case 0x3F:
		return KeyF6
	case 0x40:
		return KeyF7
	case 0x41:
		return KeyF8
	case 0x42:
		return KeyF9
	case 0x43:
		return KeyF10
	case 0x44:
		return KeyF11
	case 0x45:
		return KeyF12
	case 0x29:
		return KeyEscape
	case 0x39:
		return KeyCapsLock
	}
	return SpecialNone
}

// shiftedDigits holds the shifted symbols for keycodes 0x1E-0x26 (digits 1-9).
const shiftedDigits = "!@#$%^&*("

// ToASCII converts a HID keycode to a printable character, applying the shift
// substitution when shift is set. Returns 0 for keycodes with no printable
// mapping.
func ToASCII(keycode byte, shift bool) byte {
	// Letters a-z
	if keycode >= 0x04 && keycode <= 0x1D {
		c := 'a' + (keycode - 0x04)
		if shift {
			return c - 32
		}
		return c
	}
	// Digits 1-9
	if keycode >= 0x1E && keycode <= 0x26 {
		if shift {
			return shiftedDigits[keycode-0x1E]
		}
		return '1' + (keycode - 0x1E)
	}

	type pair struct{ plain, shifted byte }
	var p pair
	switch keycode {
	case 0x27:
		p = pair{'0', ')'}
	case 0x28:
		return '\n' // Enter
	case 0x2A:
		return '\b' // Backspace
	case 0x2B:
		return '\t' // Tab
	case 0x2C:
		return ' '
	case 0x2D:
		p = pair{'-', '_'}
	case 0x2E:
		p = pair{'=', '+'}
	case 0x2F:
		p = pair{'[', '{'}
	case 0x30:
		p = pair{']', '}'}
	case 0x31:
		p = pair{'\\', '|'}
	case 0x33:
		p = pair{';', ':'}
	case 0x34:
		p = pair{'\'', '"'}
	case 0x35:
		p = pair{'`', '~'}
	case 0x36:
		p = pair{',', '<'}
	case 0x37:
		p = pair{'.', '>'}
	case 0x38:
		p = pair{'/', '?'}
	default:
		return 0
	}
	if shift {
		return p.shifted
	}
	return p.plain
}
