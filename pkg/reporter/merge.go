package reporter

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
)

// BenchmarkResultStats represents merged results of the dnsbench.Benchmark execution.
type BenchmarkResultStats struct {
	Codes    map[int]int64
	Hist     *hdrhistogram.Histogram
	Counters dnsbench.Counters
	// Records of all merged workers ordered by sequence number.
	Records    []dnsbench.QueryRecord
	BurstSlips []time.Duration
	Workers    int
}

// Merge takes results of the executed dnsbench.Benchmark workers and merges them.
func Merge(b *dnsbench.Benchmark, stats []*dnsbench.ResultStats) BenchmarkResultStats {
	totals := BenchmarkResultStats{
		Codes: make(map[int]int64),
		Hist:  hdrhistogram.New(b.HistMin.Nanoseconds(), b.HistMax.Nanoseconds(), b.HistPre),
	}

	for _, s := range stats {
		if s == nil {
			continue
		}
		totals.Workers++
		if s.Hist != nil {
			totals.Hist.Merge(s.Hist)
		}
		totals.Records = append(totals.Records, s.Records...)
		totals.BurstSlips = append(totals.BurstSlips, s.BurstSlips...)
		for k, v := range s.Codes {
			totals.Codes[k] += v
		}
		if s.Counters != nil {
			totals.Counters = dnsbench.Counters{
				Sent:       totals.Counters.Sent + s.Counters.Sent,
				Answered:   totals.Counters.Answered + s.Counters.Answered,
				TimedOut:   totals.Counters.TimedOut + s.Counters.TimedOut,
				Truncated:  totals.Counters.Truncated + s.Counters.Truncated,
				Late:       totals.Counters.Late + s.Counters.Late,
				Unmatched:  totals.Counters.Unmatched + s.Counters.Unmatched,
				Malformed:  totals.Counters.Malformed + s.Counters.Malformed,
				SendErrors: totals.Counters.SendErrors + s.Counters.SendErrors,
				RecvErrors: totals.Counters.RecvErrors + s.Counters.RecvErrors,
			}
		}
	}

	// workers own contiguous ranges, but the order of the passed results is not guaranteed
	sort.SliceStable(totals.Records, func(i, j int) bool {
		return totals.Records[i].Sequence < totals.Records[j].Sequence
	})
	return totals
}

// answeredRTTs returns round trip times of the answered queries in the order of sequence numbers.
func (r *BenchmarkResultStats) answeredRTTs() []time.Duration {
	rtts := make([]time.Duration, 0, r.Counters.Answered)
	for i := range r.Records {
		if r.Records[i].State == dnsbench.Answered {
			rtts = append(rtts, r.Records[i].RTT)
		}
	}
	return rtts
}

// firstSent returns the instant when the first query of the benchmark was sent.
func (r *BenchmarkResultStats) firstSent() time.Time {
	var first time.Time
	for i := range r.Records {
		if first.IsZero() || r.Records[i].Sent.Before(first) {
			first = r.Records[i].Sent
		}
	}
	return first
}

// sendWindow returns time between the first and the last sent query.
func (r *BenchmarkResultStats) sendWindow() time.Duration {
	first := r.firstSent()
	var last time.Time
	for i := range r.Records {
		if r.Records[i].Sent.After(last) {
			last = r.Records[i].Sent
		}
	}
	if first.IsZero() {
		return 0
	}
	return last.Sub(first)
}
