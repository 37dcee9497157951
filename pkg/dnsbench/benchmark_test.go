package dnsbench

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBenchmark() Benchmark {
	return Benchmark{
		Server:         "192.0.2.53",
		Port:           53,
		Subnet:         "198.51.100.0/24",
		Count:          256,
		BurstSize:      2,
		Threads:        4,
		PortsPerThread: 8,
		BurstDelay:     time.Millisecond,
		Timeout:        time.Second,
	}
}

func TestBenchmark_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(b *Benchmark)
		wantErr error
	}{
		{
			name:   "valid",
			modify: func(*Benchmark) {},
		},
		{
			name:    "server is not an IP address",
			modify:  func(b *Benchmark) { b.Server = "dns.example.org" },
			wantErr: ErrBadServer,
		},
		{
			name:    "server with zone",
			modify:  func(b *Benchmark) { b.Server = "fe80::1%eth0" },
			wantErr: ErrBadServer,
		},
		{
			name:    "zero port",
			modify:  func(b *Benchmark) { b.Port = 0 },
			wantErr: ErrBadPort,
		},
		{
			name:    "subnet without prefix length",
			modify:  func(b *Benchmark) { b.Subnet = "198.51.100.0" },
			wantErr: ErrBadSubnet,
		},
		{
			name:    "IPv6 subnet",
			modify:  func(b *Benchmark) { b.Subnet = "2001:db8::/64" },
			wantErr: ErrBadSubnet,
		},
		{
			name:    "non numeric netmask",
			modify:  func(b *Benchmark) { b.Subnet = "198.51.100.0/abc" },
			wantErr: ErrBadSubnet,
		},
		{
			name:    "netmask too long",
			modify:  func(b *Benchmark) { b.Subnet = "198.51.100.0/33" },
			wantErr: ErrBadNetmask,
		},
		{
			name:    "zero count",
			modify:  func(b *Benchmark) { b.Count = 0 },
			wantErr: ErrBadCount,
		},
		{
			name:    "more queries than addresses",
			modify:  func(b *Benchmark) { b.Count = 512 },
			wantErr: ErrSubnetTooSmall,
		},
		{
			name:    "zero burst size",
			modify:  func(b *Benchmark) { b.BurstSize = 0 },
			wantErr: ErrBadBurstSize,
		},
		{
			name:    "zero threads",
			modify:  func(b *Benchmark) { b.Threads = 0 },
			wantErr: ErrBadThreads,
		},
		{
			name:    "count not divisible by threads and burst size",
			modify:  func(b *Benchmark) { b.Threads = 3 },
			wantErr: ErrNotDivisible,
		},
		{
			name:    "zero ports per thread",
			modify:  func(b *Benchmark) { b.PortsPerThread = 0 },
			wantErr: ErrBadPorts,
		},
		{
			name:    "zero delay",
			modify:  func(b *Benchmark) { b.BurstDelay = 0 },
			wantErr: ErrBadDelay,
		},
		{
			name:    "negative timeout",
			modify:  func(b *Benchmark) { b.Timeout = -time.Second },
			wantErr: ErrBadTimeout,
		},
		{
			name:    "source ports do not fit",
			modify:  func(b *Benchmark) { b.SourcePortBase = 65530 },
			wantErr: ErrBadSourcePort,
		},
		{
			name:   "source ports fit exactly",
			modify: func(b *Benchmark) { b.SourcePortBase = 65536 - 4*8 },
		},
		{
			name:    "histogram precision out of range",
			modify:  func(b *Benchmark) { b.HistPre = 6 },
			wantErr: ErrBadHistogram,
		},
		{
			name: "histogram minimum above maximum",
			modify: func(b *Benchmark) {
				b.HistMin = time.Second
				b.HistMax = time.Millisecond
			},
			wantErr: ErrBadHistogram,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBenchmark()
			tt.modify(&b)

			err := b.Validate()

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, b.validated)
				return
			}
			require.NoError(t, err)
			assert.True(t, b.validated)
		})
	}
}

func TestBenchmark_Validate_defaults(t *testing.T) {
	b := validBenchmark()
	b.Subnet = "198.51.100.77/24"
	b.Server = "::ffff:192.0.2.53"
	b.RequestLogEnabled = true

	require.NoError(t, b.Validate())

	assert.Equal(t, netip.MustParseAddrPort("192.0.2.53:53"), b.server)
	assert.Equal(t, netip.MustParsePrefix("198.51.100.0/24"), b.subnet)
	assert.Equal(t, DefaultDomain, b.Domain)
	assert.Equal(t, DefaultHistMin, b.HistMin)
	assert.Equal(t, b.Timeout, b.HistMax)
	assert.Equal(t, DefaultHistPrecision, b.HistPre)
	assert.Equal(t, DefaultRequestLogPath, b.RequestLogPath)
	assert.Equal(t, DefaultPlotFormat, b.PlotFormat)
	assert.NotNil(t, b.Writer)
	assert.NotNil(t, b.ErrWriter)
	assert.Equal(t, netip.MustParseAddr("198.51.100.0"), b.Cursor().Address(0))
	assert.Equal(t, "198-051-100-000.dns64perf.test.", b.Codec().QueryName(b.Cursor().Address(0)))

	require.NoError(t, b.Validate(), "validation is idempotent")
}

func TestBenchmark_Validate_singleAddressSubnet(t *testing.T) {
	b := validBenchmark()
	b.Subnet = "198.51.100.1/32"
	b.Count = 1
	b.BurstSize = 1
	b.Threads = 1

	require.NoError(t, b.Validate())
	assert.Equal(t, netip.MustParseAddr("198.51.100.1"), b.Cursor().Address(0))
}

func TestBenchmark_PlannedDuration(t *testing.T) {
	b := validBenchmark()
	assert.Zero(t, b.PlannedDuration(), "not validated")

	b.StartDelay = 2 * time.Second
	require.NoError(t, b.Validate())

	// 256 queries in 4 threads by bursts of 2 is 32 bursts per thread
	assert.Equal(t, 2*time.Second+32*time.Millisecond+time.Second, b.PlannedDuration())
}
