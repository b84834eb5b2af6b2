//go:build !linux

package gpio

import (
	"context"
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Board is not available on non-Linux platforms.
type Board struct{}

// NewBoard returns an error on non-Linux platforms.
func NewBoard(string, Pins, time.Duration) (*Board, error) {
	return nil, errUnsupported
}

// TubeSwitch is not implemented on non-Linux platforms.
func (b *Board) TubeSwitch() *Switch { return &Switch{} }

// LightSwitch is not implemented on non-Linux platforms.
func (b *Board) LightSwitch() *Switch { return &Switch{} }

// Watch is not implemented on non-Linux platforms.
func (b *Board) Watch(context.Context, func(Input)) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *Board) Close() error {
	return nil
}

// Switch is not implemented on non-Linux platforms.
type Switch struct{}

// Set is not implemented on non-Linux platforms.
func (s *Switch) Set(bool) error {
	return errUnsupported
}
