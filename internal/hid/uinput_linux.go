//go:build linux

package hid

import (
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"keybridge/internal/keymap"
)

// uinput ioctl requests and event codes.
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0
	relX      = 0x00
	relY      = 0x01

	busUSB = 0x03
)

// Linux input key codes for everything the bridge can press.
const (
	keyEsc        = 1
	keyMinus      = 12
	keyEqual      = 13
	keyBackspace  = 14
	keyTab        = 15
	keyLeftBrace  = 26
	keyRightBrace = 27
	keyEnter      = 28
	keyLeftCtrl   = 29
	keySemicolon  = 39
	keyApostrophe = 40
	keyGrave      = 41
	keyLeftShift  = 42
	keyBackslash  = 43
	keyComma      = 51
	keyDot        = 52
	keySlash      = 53
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyF11        = 87
	keyF12        = 88
	keyHome       = 102
	keyUp         = 103
	keyPageUp     = 104
	keyLeft       = 105
	keyRight      = 106
	keyEnd        = 107
	keyDown       = 108
	keyPageDown   = 109
	keyInsert     = 110
	keyDelete     = 111
	keyLeftMeta   = 125
)

var letterKeys = map[byte]uint16{
	'a': 30, 'b': 48, 'c': 46, 'd': 32, 'e': 18, 'f': 33, 'g': 34,
	'h': 35, 'i': 23, 'j': 36, 'k': 37, 'l': 38, 'm': 50, 'n': 49,
	'o': 24, 'p': 25, 'q': 16, 'r': 19, 's': 31, 't': 20, 'u': 22,
	'v': 47, 'w': 17, 'x': 45, 'y': 21, 'z': 44,
}

var punctKeys = map[byte]uint16{
	'-': keyMinus, '=': keyEqual, '[': keyLeftBrace, ']': keyRightBrace,
	'\\': keyBackslash, ';': keySemicolon, '\'': keyApostrophe,
	'`': keyGrave, ',': keyComma, '.': keyDot, '/': keySlash,
	' ': keySpace, '\n': keyEnter, '\t': keyTab, '\b': keyBackspace,
}

// shiftedSymbols maps shifted punctuation/digits back to the base character.
var shiftedSymbols = map[byte]byte{
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
	'_': '-', '+': '=', '{': '[', '}': ']', '|': '\\',
	':': ';', '"': '\'', '~': '`', '<': ',', '>': '.', '?': '/',
}

var specialKeys = map[keymap.Special]uint16{
	keymap.KeyLeftCtrl:   keyLeftCtrl,
	keymap.KeyLeftShift:  keyLeftShift,
	keymap.KeyLeftAlt:    keyLeftAlt,
	keymap.KeyLeftGUI:    keyLeftMeta,
	keymap.KeyRightArrow: keyRight,
	keymap.KeyLeftArrow:  keyLeft,
	keymap.KeyDownArrow:  keyDown,
	keymap.KeyUpArrow:    keyUp,
	keymap.KeyInsert:     keyInsert,
	keymap.KeyHome:       keyHome,
	keymap.KeyPageUp:     keyPageUp,
	keymap.KeyDelete:     keyDelete,
	keymap.KeyEnd:        keyEnd,
	keymap.KeyPageDown:   keyPageDown,
	keymap.KeyF1:         59,
	keymap.KeyF2:         60,
	keymap.KeyF3:         61,
	keymap.KeyF4:         62,
	keymap.KeyF5:         63,
	keymap.KeyF6:         64,
	keymap.KeyF7:         65,
	keymap.KeyF8:         66,
	keymap.KeyF9:         67,
	keymap.KeyF10:        68,
	keymap.KeyF11:        keyF11,
	keymap.KeyF12:        keyF12,
	keymap.KeyEscape:     keyEsc,
	keymap.KeyCapsLock:   keyCapsLock,
}

// charToKey resolves a printable character to its key code and whether shift
// must be held to produce it.
func charToKey(c byte) (code uint16, shift bool, ok bool) {
	if base, isShifted := shiftedSymbols[c]; isShifted {
		code, _, ok = charToKey(base)
		return code, true, ok
	}
	if c >= 'A' && c <= 'Z' {
		code, ok := letterKeys[c+32]
		return code, true, ok
	}
	if code, ok := letterKeys[c]; ok {
		return code, false, true
	}
	if c >= '1' && c <= '9' {
		return uint16(2 + c - '1'), false, true
	}
	if c == '0' {
		return 11, false, true
	}
	if code, ok := punctKeys[c]; ok {
		return code, false, true
	}
	return 0, false, false
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FFEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// uinputDevice is the Linux virtual keyboard/mouse backed by /dev/uinput.
type uinputDevice struct {
	fd      int
	name    string
	log     *zap.SugaredLogger
	pressed []uint16
}

func newUinputDevice(name string, log *zap.SugaredLogger) (Device, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	d := &uinputDevice{fd: fd, name: name, log: log}
	if err := d.setup(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}

func (d *uinputDevice) setup() error {
	if err := unix.IoctlSetInt(d.fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("uinput: enable EV_KEY: %w", err)
	}
	// Register the full range of key codes the maps above can emit.
	for code := 1; code <= keyLeftMeta; code++ {
		if err := unix.IoctlSetInt(d.fd, uiSetKeyBit, code); err != nil {
			return fmt.Errorf("uinput: register key %d: %w", code, err)
		}
	}
	if err := unix.IoctlSetInt(d.fd, uiSetEvBit, evRel); err != nil {
		return fmt.Errorf("uinput: enable EV_REL: %w", err)
	}
	for _, axis := range []int{relX, relY} {
		if err := unix.IoctlSetInt(d.fd, uiSetRelBit, axis); err != nil {
			return fmt.Errorf("uinput: register rel axis %d: %w", axis, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], d.name)
	dev.ID = inputID{Bustype: busUSB, Vendor: 0x1d50, Product: 0x6066, Version: 1}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&dev)), unsafe.Sizeof(dev))
	if _, err := unix.Write(d.fd, buf); err != nil {
		return fmt.Errorf("uinput: write device descriptor: %w", err)
	}
	if err := unix.IoctlSetInt(d.fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput: create device: %w", err)
	}

	// Give udev a moment to pick the node up before the first event.
	time.Sleep(200 * time.Millisecond)
	d.log.Infow("uinput device created", "name", d.name)
	return nil
}

func (d *uinputDevice) emit(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	if _, err := unix.Write(d.fd, buf); err != nil {
		return fmt.Errorf("uinput: emit event: %w", err)
	}
	return nil
}

func (d *uinputDevice) sync() error {
	return d.emit(evSyn, synReport, 0)
}

func (d *uinputDevice) pressCode(code uint16) error {
	if err := d.emit(evKey, code, 1); err != nil {
		return err
	}
	if err := d.sync(); err != nil {
		return err
	}
	d.pressed = append(d.pressed, code)
	return nil
}

func (d *uinputDevice) PressChar(c byte) error {
	code, shift, ok := charToKey(c)
	if !ok {
		d.log.Debugw("uinput: no key mapping for char", "char", fmt.Sprintf("%q", string(rune(c))))
		return nil
	}
	if shift {
		if err := d.pressCode(keyLeftShift); err != nil {
			return err
		}
	}
	return d.pressCode(code)
}

func (d *uinputDevice) PressSpecial(k keymap.Special) error {
	code, ok := specialKeys[k]
	if !ok {
		d.log.Debugw("uinput: no key mapping for special", "key", k.String())
		return nil
	}
	return d.pressCode(code)
}

func (d *uinputDevice) ReleaseAll() error {
	// Release in reverse press order so modifiers come up last.
	for i := len(d.pressed) - 1; i >= 0; i-- {
		if err := d.emit(evKey, d.pressed[i], 0); err != nil {
			return err
		}
		if err := d.sync(); err != nil {
			return err
		}
	}
	d.pressed = d.pressed[:0]
	return nil
}

func (d *uinputDevice) MoveMouse(dx, dy int) error {
	if dx != 0 {
		if err := d.emit(evRel, relX, int32(dx)); err != nil {
			return err
		}
	}
	if dy != 0 {
		if err := d.emit(evRel, relY, int32(dy)); err != nil {
			return err
		}
	}
	return d.sync()
}

func (d *uinputDevice) Close() error {
	_ = unix.IoctlSetInt(d.fd, uiDevDestroy, 0)
	return unix.Close(d.fd)
}
