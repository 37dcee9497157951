package sysutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinCurrentThread pins the calling OS thread to the CPU core. The calling goroutine has to be locked
// to its thread using runtime.LockOSThread.
func PinCurrentThread(cpu int) error {
	if cpu < 0 {
		return fmt.Errorf("invalid CPU core %d", cpu)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if set.Count() == 0 {
		return fmt.Errorf("CPU core %d is out of range", cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}
