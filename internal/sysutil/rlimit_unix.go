//go:build !windows

package sysutil

import "golang.org/x/sys/unix"

// RaiseOpenFilesLimit raises the soft limit of open files to at least n, bounded by the hard limit.
// It reports the resulting soft limit.
func RaiseOpenFilesLimit(n uint64) (cur uint64, err error) {
	var r unix.Rlimit
	if err = unix.Getrlimit(unix.RLIMIT_NOFILE, &r); err != nil {
		return 0, err
	}
	if r.Cur >= n {
		return r.Cur, nil
	}
	want := n
	if r.Max != unix.RLIM_INFINITY && want > r.Max {
		want = r.Max
	}
	r.Cur = want
	if err = unix.Setrlimit(unix.RLIMIT_NOFILE, &r); err != nil {
		return 0, err
	}
	return want, nil
}
