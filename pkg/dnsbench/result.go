package dnsbench

import (
	"net/netip"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// QueryState is a state of a single query.
type QueryState uint8

const (
	// Pending query was sent and neither answered nor timed out yet.
	Pending QueryState = iota
	// Answered query received matching response within the timeout.
	Answered
	// TimedOut query did not receive matching response within the timeout.
	TimedOut
)

func (s QueryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Answered:
		return "answered"
	case TimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// QueryRecord represents a single query sent by a worker.
type QueryRecord struct {
	Sequence uint32
	Address  netip.Addr
	// Socket is an index of the worker socket used for sending the query.
	Socket int
	Sent   time.Time
	State  QueryState
	// RTT, Rcode and Truncated are valid only for Answered queries.
	RTT       time.Duration
	Rcode     int
	Truncated bool
}

// Counters represents various counters of benchmark results.
type Counters struct {
	Sent      int64
	Answered  int64
	TimedOut  int64
	Truncated int64
	// Late counts responses received after the timeout of their query.
	Late int64
	// Unmatched counts well-formed responses without a pending query, like duplicates.
	Unmatched int64
	// Malformed counts datagrams that could not be correlated to any query.
	Malformed  int64
	SendErrors int64
	RecvErrors int64
}

// ResultStats is a representation of benchmark results of a single worker.
type ResultStats struct {
	WorkerID uint32
	// Records are ordered by sequence number.
	Records  []QueryRecord
	Codes    map[int]int64
	Hist     *hdrhistogram.Histogram
	Counters *Counters
	// BurstSlips holds for each burst how late it was sent compared to its deadline.
	BurstSlips []time.Duration
}

func newResultStats(b *Benchmark, id, count uint32) *ResultStats {
	return &ResultStats{
		WorkerID:   id,
		Records:    make([]QueryRecord, 0, count),
		Codes:      make(map[int]int64),
		Hist:       hdrhistogram.New(b.HistMin.Nanoseconds(), b.HistMax.Nanoseconds(), b.HistPre),
		Counters:   &Counters{},
		BurstSlips: make([]time.Duration, 0, count/b.BurstSize),
	}
}

func (rs *ResultStats) answer(rec *QueryRecord, resp Response, rtt time.Duration) {
	rec.State = Answered
	rec.RTT = rtt
	rec.Rcode = resp.Rcode
	rec.Truncated = resp.Truncated

	rs.Counters.Answered++
	if resp.Truncated {
		rs.Counters.Truncated++
	}
	rs.Codes[resp.Rcode]++
	rs.Hist.RecordValue(rtt.Nanoseconds())
}

func (rs *ResultStats) timeout(rec *QueryRecord) {
	rec.State = TimedOut
	rs.Counters.TimedOut++
}
