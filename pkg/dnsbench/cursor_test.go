package dnsbench_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
)

func TestAddressCursor_Address(t *testing.T) {
	cursor := dnsbench.NewAddressCursor(netip.MustParseAddr("192.0.2.0"), 256)

	seen := make(map[netip.Addr]struct{})
	subnet := netip.MustParsePrefix("192.0.2.0/24")
	for i := uint32(0); i < cursor.Total(); i++ {
		addr := cursor.Address(i)
		require.True(t, subnet.Contains(addr), "address %s is outside of the subnet", addr)
		seen[addr] = struct{}{}
	}

	assert.Len(t, seen, 256)
	assert.Equal(t, netip.MustParseAddr("192.0.2.0"), cursor.Address(0))
	assert.Equal(t, netip.MustParseAddr("192.0.2.255"), cursor.Address(255))
}

func TestAddressCursor_Address_crossesOctets(t *testing.T) {
	cursor := dnsbench.NewAddressCursor(netip.MustParseAddr("10.0.0.0"), 1<<16)

	assert.Equal(t, netip.MustParseAddr("10.0.1.0"), cursor.Address(256))
	assert.Equal(t, netip.MustParseAddr("10.0.255.255"), cursor.Address(1<<16-1))
}

func TestAddressCursor_Index(t *testing.T) {
	cursor := dnsbench.NewAddressCursor(netip.MustParseAddr("192.0.2.0"), 128)

	tests := []struct {
		name    string
		addr    netip.Addr
		wantSeq uint32
		wantOk  bool
	}{
		{
			name:    "first address",
			addr:    netip.MustParseAddr("192.0.2.0"),
			wantSeq: 0,
			wantOk:  true,
		},
		{
			name:    "last address",
			addr:    netip.MustParseAddr("192.0.2.127"),
			wantSeq: 127,
			wantOk:  true,
		},
		{
			name:   "after the queried range",
			addr:   netip.MustParseAddr("192.0.2.128"),
			wantOk: false,
		},
		{
			name:   "before the queried range",
			addr:   netip.MustParseAddr("192.0.1.255"),
			wantOk: false,
		},
		{
			name:   "IPv6",
			addr:   netip.MustParseAddr("64:ff9b::c000:201"),
			wantOk: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, ok := cursor.Index(tt.addr)

			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.wantSeq, seq)
				assert.Equal(t, tt.addr, cursor.Address(seq))
			}
		})
	}
}

func TestAddressCursor_Partition(t *testing.T) {
	cursor := dnsbench.NewAddressCursor(netip.MustParseAddr("192.0.2.0"), 256)
	threads := uint32(4)

	owner := make(map[uint32]uint32)
	for w := uint32(0); w < threads; w++ {
		first, count := cursor.Partition(w, threads)
		assert.Equal(t, uint32(64), count)
		for seq := first; seq < first+count; seq++ {
			_, ok := owner[seq]
			require.False(t, ok, "sequence %d is owned by more workers", seq)
			owner[seq] = w
		}
	}

	assert.Len(t, owner, 256)
}
