//go:build !windows

package dnsbench

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// SocketPool owns the UDP sockets of a single worker. Every socket is connected to the benchmarked server
// and bound to its own local port.
type SocketPool struct {
	conns []*net.UDPConn
	raw   []syscall.RawConn
	fds   []unix.PollFd
}

// NewSocketPool opens n sockets connected to the server. If firstPort is not zero, the sockets are bound to ports
// firstPort, firstPort+1, ..., otherwise the ports are chosen by the kernel.
func NewSocketPool(server netip.AddrPort, n int, firstPort uint16) (*SocketPool, error) {
	network := "udp4"
	if server.Addr().Is6() && !server.Addr().Is4In6() {
		network = "udp6"
	}
	raddr := net.UDPAddrFromAddrPort(server)

	p := &SocketPool{
		conns: make([]*net.UDPConn, 0, n),
		raw:   make([]syscall.RawConn, 0, n),
		fds:   make([]unix.PollFd, 0, n),
	}
	for i := 0; i < n; i++ {
		var laddr *net.UDPAddr
		if firstPort != 0 {
			laddr = &net.UDPAddr{Port: int(firstPort) + i}
		}
		conn, err := net.DialUDP(network, laddr, raddr)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to open socket %d: %w", i, err)
		}
		p.conns = append(p.conns, conn)

		rc, err := conn.SyscallConn()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to access socket %d: %w", i, err)
		}
		var fd int32
		if err := rc.Control(func(s uintptr) { fd = int32(s) }); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to access socket %d: %w", i, err)
		}
		p.raw = append(p.raw, rc)
		p.fds = append(p.fds, unix.PollFd{Fd: fd, Events: unix.POLLIN})
	}
	return p, nil
}

// Len returns number of sockets in the pool.
func (p *SocketPool) Len() int {
	return len(p.conns)
}

// LocalPort returns local port the socket is bound to.
func (p *SocketPool) LocalPort(i int) int {
	return p.conns[i].LocalAddr().(*net.UDPAddr).Port
}

// Send writes the datagram to the server using the i-th socket.
func (p *SocketPool) Send(i int, b []byte) error {
	_, err := p.conns[i].Write(b)
	return err
}

// Wait blocks until any of the sockets is readable or the timeout elapses. It returns true when there
// is something to read.
func (p *SocketPool) Wait(timeout time.Duration) (bool, error) {
	if timeout < 0 {
		timeout = 0
	}
	for i := range p.fds {
		p.fds[i].Revents = 0
	}
	n, err := poll(p.fds, timeout)
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to wait for sockets: %w", err)
	}
	return n > 0, nil
}

// Readable reports whether the last Wait found the i-th socket readable. Pending socket errors
// are reported as readable too, so that they are consumed by Recv.
func (p *SocketPool) Readable(i int) bool {
	return p.fds[i].Revents&(unix.POLLIN|unix.POLLERR) != 0
}

// Recv reads one datagram from the i-th socket without blocking. errWouldBlock is returned when there is
// nothing left to read.
func (p *SocketPool) Recv(i int, buf []byte) (int, error) {
	var n int
	var rerr error
	err := p.raw[i].Read(func(fd uintptr) bool {
		n, rerr = unix.Read(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	if errors.Is(rerr, unix.EAGAIN) || errors.Is(rerr, unix.EWOULDBLOCK) {
		return 0, errWouldBlock
	}
	if rerr != nil {
		return 0, rerr
	}
	return n, nil
}

// Close closes all sockets of the pool.
func (p *SocketPool) Close() error {
	var errs []error
	for _, c := range p.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.conns = nil
	return errors.Join(errs...)
}
