// Package hid provides the host-facing keyboard/mouse sink and its
// platform backends.
package hid

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"keybridge/internal/keymap"
)

// Device is the USB HID output sink. Press calls accumulate held keys until
// ReleaseAll, which releases everything pressed since the last release; this
// is the tap primitive the bridge emits.
type Device interface {
	PressChar(c byte) error
	PressSpecial(k keymap.Special) error
	ReleaseAll() error
	MoveMouse(dx, dy int) error
	Close() error
}

// Open creates the configured backend. An unknown backend is an error;
// "uinput" is only available on Linux. name labels the virtual device.
func Open(backend, name string, log *zap.SugaredLogger) (Device, error) {
	if name == "" {
		name = "keybridge"
	}
	switch backend {
	case "", "uinput":
		return newUinputDevice(name, log)
	case "null":
		return NewNull(log), nil
	}
	return nil, fmt.Errorf("unknown hid backend %q", backend)
}

// Null is a Device that discards all output. It keeps the controller loop
// runnable on hosts without an injection backend.
type Null struct {
	log *zap.SugaredLogger
}

// NewNull returns a discarding device.
func NewNull(log *zap.SugaredLogger) *Null {
	return &Null{log: log}
}

func (n *Null) PressChar(c byte) error {
	n.log.Debugw("hid null: press char", "char", string(rune(c)))
	return nil
}

func (n *Null) PressSpecial(k keymap.Special) error {
	n.log.Debugw("hid null: press special", "key", k.String())
	return nil
}

func (n *Null) ReleaseAll() error { return nil }

func (n *Null) MoveMouse(dx, dy int) error {
	n.log.Debugw("hid null: mouse move", "dx", dx, "dy", dy)
	return nil
}

func (n *Null) Close() error { return nil }

// Recorder is a Device that records every operation, for tests.
type Recorder struct {
	mu  sync.Mutex
	ops []string
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(op string) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *Recorder) PressChar(c byte) error {
	r.record(fmt.Sprintf("char:%q", string(rune(c))))
	return nil
}

func (r *Recorder) PressSpecial(k keymap.Special) error {
	r.record("special:" + k.String())
	return nil
}

func (r *Recorder) ReleaseAll() error {
	r.record("release")
	return nil
}

func (r *Recorder) MoveMouse(dx, dy int) error {
	r.record(fmt.Sprintf("move:%d,%d", dx, dy))
	return nil
}

func (r *Recorder) Close() error { return nil }

// Ops returns a copy of the recorded operations in order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ops))
	copy(out, r.ops)
	return out
}

// Reset clears the recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}
