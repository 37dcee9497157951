package dnsbench

import (
	"errors"
	"net/netip"
	"time"
)

var errPoolUnsupported = errors.New("multiplexed wait on UDP sockets is not supported on windows")

// SocketPool owns the UDP sockets of a single worker, it is not available on windows.
type SocketPool struct{}

// NewSocketPool always fails on windows.
func NewSocketPool(netip.AddrPort, int, uint16) (*SocketPool, error) {
	return nil, errPoolUnsupported
}

// Len returns number of sockets in the pool.
func (p *SocketPool) Len() int { return 0 }

// LocalPort returns local port the socket is bound to.
func (p *SocketPool) LocalPort(int) int { return 0 }

// Send writes the datagram to the server using the i-th socket.
func (p *SocketPool) Send(int, []byte) error { return errPoolUnsupported }

// Wait blocks until any of the sockets is readable or the timeout elapses.
func (p *SocketPool) Wait(time.Duration) (bool, error) { return false, errPoolUnsupported }

// Readable reports whether the last Wait found the i-th socket readable.
func (p *SocketPool) Readable(int) bool { return false }

// Recv reads one datagram from the i-th socket without blocking.
func (p *SocketPool) Recv(int, []byte) (int, error) { return 0, errPoolUnsupported }

// Close closes all sockets of the pool.
func (p *SocketPool) Close() error { return nil }
