package cmd

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/tantalor93/dns64perf/pkg/dnsbench"
)

// positionalArgs holds the positional arguments as they were passed, they are converted by apply, so every
// malformed value gets its own diagnostic.
type positionalArgs struct {
	server   string
	port     string
	subnet   string
	requests string
	burst    string
	threads  string
	ports    string
	delay    string
	timeout  string
}

// diagnostics maps configuration errors to the messages printed to the user.
var diagnostics = []struct {
	err error
	msg string
}{
	{dnsbench.ErrBadServer, "Bad server address."},
	{dnsbench.ErrBadPort, "Bad port."},
	{dnsbench.ErrBadSubnet, "Bad subnet."},
	{dnsbench.ErrBadNetmask, "Bad netmask."},
	{dnsbench.ErrBadCount, "Bad number of requests, must be between 0 and 2^32."},
	{dnsbench.ErrSubnetTooSmall, "The number of requests is higher than the available IPs in the subnet."},
	{dnsbench.ErrBadBurstSize, "Bad burst size, must be between 0 and 2^32."},
	{dnsbench.ErrBadThreads, "Bad number of threads, must be between 0 and 2^32."},
	{dnsbench.ErrNotDivisible, "Number of requests must be divisible by (number of threads * burst size)."},
	{dnsbench.ErrBadPorts, "Bad number of ports per thread, must be between 0 and 2^16."},
	{dnsbench.ErrBadDelay, "Bad delay between bursts."},
	{dnsbench.ErrBadTimeout, "Bad timeout."},
	{dnsbench.ErrBadSourcePort, "Bad source port base, the sockets of all threads must fit below port 65536."},
	{dnsbench.ErrBadHistogram, "Bad histogram configuration, precision must be between 1 and 5 and minimum lower than maximum."},
}

// diagnostic returns the message describing the configuration error.
func diagnostic(err error) string {
	for _, d := range diagnostics {
		if errors.Is(err, d.err) {
			return d.msg
		}
	}
	return err.Error()
}

// apply converts the positional arguments into the benchmark configuration. Only the syntax is checked here,
// the semantic checks are done by dnsbench.Benchmark.Validate.
func (a *positionalArgs) apply(b *dnsbench.Benchmark) error {
	b.Server = a.server

	port, err := strconv.ParseUint(a.port, 10, 16)
	if err != nil {
		return dnsbench.ErrBadPort
	}
	b.Port = uint16(port)

	b.Subnet = a.subnet

	requests, err := strconv.ParseUint(a.requests, 10, 32)
	if err != nil {
		return dnsbench.ErrBadCount
	}
	b.Count = uint32(requests)

	burst, err := strconv.ParseUint(a.burst, 10, 32)
	if err != nil {
		return dnsbench.ErrBadBurstSize
	}
	b.BurstSize = uint32(burst)

	threads, err := strconv.ParseUint(a.threads, 10, 32)
	if err != nil {
		return dnsbench.ErrBadThreads
	}
	b.Threads = uint32(threads)

	ports, err := strconv.ParseUint(a.ports, 10, 16)
	if err != nil {
		return dnsbench.ErrBadPorts
	}
	b.PortsPerThread = uint16(ports)

	delay, err := strconv.ParseUint(a.delay, 10, 64)
	if err != nil || delay > math.MaxInt64 {
		return dnsbench.ErrBadDelay
	}
	b.BurstDelay = time.Duration(delay)

	timeout, err := strconv.ParseFloat(a.timeout, 64)
	if err != nil || math.IsNaN(timeout) || math.IsInf(timeout, 0) || timeout*float64(time.Second) >= math.MaxInt64 {
		return dnsbench.ErrBadTimeout
	}
	b.Timeout = time.Duration(timeout * float64(time.Second))

	return nil
}
