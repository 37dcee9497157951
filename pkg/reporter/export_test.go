package reporter

import "github.com/tantalor93/dns64perf/pkg/dnsbench"

// NewTestAggregator creates aggregator directly from the worker results, failed maps IDs of the failed workers
// to their errors.
func NewTestAggregator(b *dnsbench.Benchmark, stats []*dnsbench.ResultStats, failed map[uint32]error) *Aggregator {
	var fw []failedWorker
	for id, err := range failed {
		fw = append(fw, failedWorker{id: id, err: err})
	}
	return newAggregator(b, stats, fw)
}
