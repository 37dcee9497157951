package sysutil

import "math"

// RaiseOpenFilesLimit is a no-op on windows, there is no open files limit to raise.
func RaiseOpenFilesLimit(uint64) (uint64, error) {
	return math.MaxUint64, nil
}
