package dnsbench

import (
	"time"

	"golang.org/x/sys/unix"
)

func poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	return unix.Ppoll(fds, &ts, nil)
}
