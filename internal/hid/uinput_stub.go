//go:build !linux

package hid

import (
	"fmt"

	"go.uber.org/zap"
)

// The uinput backend only exists on Linux.
func newUinputDevice(name string, log *zap.SugaredLogger) (Device, error) {
	return nil, fmt.Errorf("uinput backend not supported on this platform")
}
