package dnsbench

import (
	"encoding/binary"
	"net/netip"
)

// AddressCursor maps global query sequence numbers to target addresses of the configured subnet.
// Sequence i is mapped to base + i, so the first total host addresses of the subnet are each
// queried exactly once.
type AddressCursor struct {
	base  uint32
	total uint32
}

// NewAddressCursor creates cursor over the first total addresses starting at base. Capacity of the subnet
// is not checked here, it is validated as part of the Benchmark configuration.
func NewAddressCursor(base netip.Addr, total uint32) AddressCursor {
	return AddressCursor{base: addrToUint32(base), total: total}
}

// Total returns number of addresses covered by the cursor.
func (c AddressCursor) Total() uint32 {
	return c.total
}

// Address returns target address for the sequence number.
func (c AddressCursor) Address(seq uint32) netip.Addr {
	return uint32ToAddr(c.base + seq)
}

// Index is the inverse of Address, it returns false when the address is not covered by the cursor.
func (c AddressCursor) Index(addr netip.Addr) (uint32, bool) {
	if !addr.Is4() {
		return 0, false
	}
	seq := addrToUint32(addr) - c.base
	if seq >= c.total {
		return 0, false
	}
	return seq, true
}

// Partition returns contiguous range of sequence numbers owned by the worker.
func (c AddressCursor) Partition(worker, threads uint32) (first, count uint32) {
	count = c.total / threads
	return worker * count, count
}

func addrToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uint32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
