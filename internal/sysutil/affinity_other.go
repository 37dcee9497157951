//go:build !linux

package sysutil

import "errors"

// ErrPinningUnsupported is returned when threads can not be pinned to CPU cores on the platform.
var ErrPinningUnsupported = errors.New("pinning threads to CPU cores is not supported on this platform")

// PinCurrentThread is not supported outside of linux.
func PinCurrentThread(int) error {
	return ErrPinningUnsupported
}
