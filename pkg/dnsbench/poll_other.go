//go:build !linux && !windows

package dnsbench

import (
	"time"

	"golang.org/x/sys/unix"
)

// poll has only millisecond resolution here, the timeout is rounded up so that deadlines are never missed early.
func poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	ms := int((timeout + time.Millisecond - 1) / time.Millisecond)
	return unix.Poll(fds, ms)
}
