package dnsbench

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/tantalor93/dns64perf/internal/sysutil"
	"github.com/tantalor93/dns64perf/pkg/printutils"
)

var (
	// ErrBadServer is returned when the server is not a valid IP address.
	ErrBadServer = errors.New("bad server address")
	// ErrBadPort is returned when the server port is zero.
	ErrBadPort = errors.New("bad port")
	// ErrBadSubnet is returned when the subnet is not a valid IPv4 CIDR.
	ErrBadSubnet = errors.New("bad subnet")
	// ErrBadNetmask is returned when the subnet prefix length is greater than 32.
	ErrBadNetmask = errors.New("bad netmask")
	// ErrBadCount is returned when no queries are configured.
	ErrBadCount = errors.New("bad number of requests, must be greater than 0")
	// ErrSubnetTooSmall is returned when there are more queries than addresses in the subnet.
	ErrSubnetTooSmall = errors.New("the number of requests is higher than the available IPs in the subnet")
	// ErrBadBurstSize is returned when burst size is zero.
	ErrBadBurstSize = errors.New("bad burst size, must be greater than 0")
	// ErrBadThreads is returned when number of threads is zero.
	ErrBadThreads = errors.New("bad number of threads, must be greater than 0")
	// ErrNotDivisible is returned when queries can not be split evenly into bursts of the threads.
	ErrNotDivisible = errors.New("number of requests must be divisible by (number of threads * burst size)")
	// ErrBadPorts is returned when number of ports per thread is zero.
	ErrBadPorts = errors.New("bad number of ports per thread, must be greater than 0")
	// ErrBadDelay is returned when delay between bursts is not positive.
	ErrBadDelay = errors.New("bad delay between bursts")
	// ErrBadTimeout is returned when the timeout is not positive.
	ErrBadTimeout = errors.New("bad timeout")
	// ErrBadSourcePort is returned when the source ports of all sockets do not fit into the port range.
	ErrBadSourcePort = errors.New("bad source port base, the sockets of all threads do not fit into the port range")
	// ErrBadHistogram is returned when histogram configuration is invalid.
	ErrBadHistogram = errors.New("bad histogram configuration")
)

// Benchmark is representation of the DNS64 benchmark scenario.
type Benchmark struct {
	// Server is IPv4 or IPv6 address of the benchmarked DNS64 server.
	Server string
	Port   uint16
	// Subnet is IPv4 CIDR, each query asks for a name encoding one address of the subnet.
	Subnet         string
	Count          uint32
	BurstSize      uint32
	Threads        uint32
	PortsPerThread uint16
	BurstDelay     time.Duration
	Timeout        time.Duration

	// Domain is the suffix of the synthetic query names.
	Domain     string
	StartDelay time.Duration
	// SourcePortBase is the first local port used, zero means that ports are chosen by the kernel.
	SourcePortBase uint16
	Recurse        bool
	// Pin enables pinning of the worker threads to dedicated CPU cores.
	Pin bool

	HistDisplay bool
	HistMin     time.Duration
	HistMax     time.Duration
	HistPre     int

	Csv         string
	Parquet     string
	JSON        bool
	Silent      bool
	Color       bool
	PlotDir     string
	PlotFormat  string
	MetricsFile string

	RequestLogEnabled bool
	RequestLogPath    string

	// AllowPartial enables reporting of results of the workers that did not fail.
	AllowPartial bool

	// Writer used for printing benchmark progress and results, if not specified, os.Stdout is used.
	Writer io.Writer
	// ErrWriter used for printing diagnostics, if not specified, os.Stderr is used.
	ErrWriter io.Writer

	// internal variables so we do not have to parse the configuration with each query.
	server    netip.AddrPort
	subnet    netip.Prefix
	cursor    AddressCursor
	codec     *PacketCodec
	validated bool
}

// Validate checks the configuration and fills in defaults. Run validates the configuration as well, calling
// Validate in advance is useful to report configuration errors before anything else happens.
func (b *Benchmark) Validate() error {
	addr, err := netip.ParseAddr(b.Server)
	if err != nil || addr.Zone() != "" {
		return fmt.Errorf("%w: '%s'", ErrBadServer, b.Server)
	}
	if b.Port == 0 {
		return ErrBadPort
	}
	b.server = netip.AddrPortFrom(addr.Unmap(), b.Port)

	subnet, err := parseSubnet(b.Subnet)
	if err != nil {
		return err
	}
	b.subnet = subnet

	if b.Count == 0 {
		return ErrBadCount
	}
	if uint64(b.Count) > uint64(1)<<(32-subnet.Bits()) {
		return ErrSubnetTooSmall
	}
	if b.BurstSize == 0 {
		return ErrBadBurstSize
	}
	if b.Threads == 0 {
		return ErrBadThreads
	}
	if uint64(b.Count)%(uint64(b.Threads)*uint64(b.BurstSize)) != 0 {
		return ErrNotDivisible
	}
	if b.PortsPerThread == 0 {
		return ErrBadPorts
	}
	if b.BurstDelay <= 0 {
		return ErrBadDelay
	}
	if b.Timeout <= 0 {
		return ErrBadTimeout
	}
	if b.SourcePortBase != 0 && uint64(b.SourcePortBase)+uint64(b.Threads)*uint64(b.PortsPerThread) > 65536 {
		return ErrBadSourcePort
	}

	if b.Domain == "" {
		b.Domain = DefaultDomain
	}
	if b.StartDelay < 0 {
		b.StartDelay = 0
	}
	if b.HistMin <= 0 {
		b.HistMin = DefaultHistMin
	}
	if b.HistMax <= 0 {
		b.HistMax = b.Timeout
	}
	if b.HistPre == 0 {
		b.HistPre = DefaultHistPrecision
	}
	if b.HistPre < 1 || b.HistPre > 5 || b.HistMin >= b.HistMax {
		return ErrBadHistogram
	}
	if b.RequestLogEnabled && b.RequestLogPath == "" {
		b.RequestLogPath = DefaultRequestLogPath
	}
	if b.PlotFormat == "" {
		b.PlotFormat = DefaultPlotFormat
	}
	if b.Writer == nil {
		b.Writer = os.Stdout
	}
	if b.ErrWriter == nil {
		b.ErrWriter = os.Stderr
	}

	b.cursor = NewAddressCursor(subnet.Addr(), b.Count)
	b.codec = NewPacketCodec(b.cursor, b.Domain, b.Recurse)
	b.validated = true
	return nil
}

// parseSubnet parses IPv4 CIDR, host bits of the address are masked off.
func parseSubnet(s string) (netip.Prefix, error) {
	addrPart, bitsPart, ok := strings.Cut(s, "/")
	if !ok {
		return netip.Prefix{}, fmt.Errorf("%w: '%s'", ErrBadSubnet, s)
	}
	addr, err := netip.ParseAddr(addrPart)
	if err != nil || !addr.Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: '%s'", ErrBadSubnet, s)
	}
	bits, err := strconv.ParseUint(bitsPart, 10, 8)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: '%s'", ErrBadSubnet, s)
	}
	if bits > 32 {
		return netip.Prefix{}, fmt.Errorf("%w: /%d", ErrBadNetmask, bits)
	}
	return netip.PrefixFrom(addr, int(bits)).Masked(), nil
}

// Codec returns codec of the benchmark queries, it is available after the configuration is validated.
func (b *Benchmark) Codec() *PacketCodec {
	return b.codec
}

// Cursor returns mapping of sequence numbers to target addresses, it is available after the configuration
// is validated.
func (b *Benchmark) Cursor() AddressCursor {
	return b.cursor
}

// PlannedDuration returns how long the benchmark is expected to take, including the start delay and waiting
// for the responses to the last burst.
func (b *Benchmark) PlannedDuration() time.Duration {
	if !b.validated {
		return 0
	}
	bursts := b.Count / b.Threads / b.BurstSize
	return b.StartDelay + time.Duration(bursts)*b.BurstDelay + b.Timeout
}

type pinResult struct {
	worker int
	cpu    int
	err    error
}

// Run executes the benchmark. If the benchmark is unable to start, the error is returned and no query is sent.
// Otherwise all workers are run to completion and returned, workers that failed while running are reported
// by the joined error.
func (b *Benchmark) Run() ([]*Worker, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	color.NoColor = !b.Color

	if !b.Silent && !b.JSON {
		printutils.NeutralFprintf(b.Writer, "Benchmarking %s via udp with %s threads and %s ports per thread\n",
			printutils.HighlightSprint(b.server), printutils.HighlightSprint(b.Threads), printutils.HighlightSprint(b.PortsPerThread))
		printutils.NeutralFprintf(b.Writer, "Sending %s queries for %s in bursts of %s every %s\n",
			printutils.HighlightSprint(b.Count), printutils.HighlightSprint(b.subnet), printutils.HighlightSprint(b.BurstSize),
			printutils.HighlightSprint(b.BurstDelay))
	}

	sockets := uint64(b.Threads) * uint64(b.PortsPerThread)
	if cur, err := sysutil.RaiseOpenFilesLimit(sockets + 64); err != nil {
		printutils.ErrFprintf(b.ErrWriter, "Unable to raise limit of open files to fit %d sockets: %v\n", sockets, err)
	} else if cur < sockets {
		printutils.ErrFprintf(b.ErrWriter, "Limit of open files %d is lower than the number of sockets %d\n", cur, sockets)
	}

	reference := time.Now().Add(b.StartDelay)
	workers := make([]*Worker, b.Threads)
	for i := range workers {
		first, count := b.cursor.Partition(uint32(i), b.Threads)
		w, err := NewWorker(b, uint32(i), first, count, StartDeadline(reference, uint32(i), b.Threads, b.BurstDelay))
		if err != nil {
			for _, created := range workers[:i] {
				created.close()
			}
			return nil, fmt.Errorf("failed to create worker %d: %w", i, err)
		}
		workers[i] = w
	}

	errs := make([]error, len(workers))
	pinned := make(chan pinResult, len(workers))

	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if b.Pin {
				// cores 0..threads-1 are left to the rest of the process
				cpu := int(b.Threads) + i
				pinned <- pinResult{worker: i, cpu: cpu, err: sysutil.PinCurrentThread(cpu)}
			}
			if err := w.Start(); err != nil {
				errs[i] = fmt.Errorf("worker %d failed: %w", i, err)
			}
		}(i, w)
	}

	if b.Pin {
		for range workers {
			res := <-pinned
			if res.err != nil {
				printutils.ErrFprintf(b.ErrWriter, "Unable to pin worker thread %d to CPU core %d: %v\n", res.worker, res.cpu, res.err)
			} else if !b.Silent {
				printutils.NeutralFprintf(b.ErrWriter, "Worker thread %d was pinned to CPU core %d.\n", res.worker, res.cpu)
			}
		}
	}

	wg.Wait()

	if b.RequestLogEnabled {
		if err := b.logRequests(workers); err != nil {
			printutils.ErrFprintf(b.ErrWriter, "Failed to write request log: %v\n", err)
		}
	}

	return workers, errors.Join(errs...)
}
