package reporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
)

var (
	// ErrWorkersNotDone is returned when results of workers, which have not finished, are aggregated.
	ErrWorkersNotDone = errors.New("benchmark workers have not finished")
	// ErrWorkersFailed is returned when some workers failed and partial results are not allowed.
	ErrWorkersFailed = errors.New("benchmark workers failed")
)

type failedWorker struct {
	id  uint32
	err error
}

type reportParameters struct {
	benchmark     *dnsbench.Benchmark
	outputWriter  io.Writer
	hist          *hdrhistogram.Histogram
	codeTotals    map[int]int64
	totalCounters dnsbench.Counters
	latency       latencySummary
	slips         slipSummary
	achievedQPS   float64
	plannedQPS    float64
	failedWorkers []failedWorker
}

type reportPrinter interface {
	print(params reportParameters) error
}

// Aggregator merges results of the finished workers and reports them.
type Aggregator struct {
	b      *dnsbench.Benchmark
	totals BenchmarkResultStats
	failed []failedWorker
}

// NewAggregator merges the results of the workers. All workers must have finished. Results of the failed workers
// are excluded, which is allowed only if the benchmark is configured to report partial results.
func NewAggregator(b *dnsbench.Benchmark, workers []*dnsbench.Worker) (*Aggregator, error) {
	stats := make([]*dnsbench.ResultStats, 0, len(workers))
	var failed []failedWorker
	var errs []error
	for _, w := range workers {
		if !w.Done() {
			return nil, fmt.Errorf("%w: worker %d", ErrWorkersNotDone, w.ID())
		}
		if err := w.Err(); err != nil {
			failed = append(failed, failedWorker{id: w.ID(), err: err})
			errs = append(errs, fmt.Errorf("worker %d: %w", w.ID(), err))
			continue
		}
		stats = append(stats, w.Result())
	}
	if len(failed) > 0 && !b.AllowPartial {
		return nil, fmt.Errorf("%w: %w", ErrWorkersFailed, errors.Join(errs...))
	}
	return newAggregator(b, stats, failed), nil
}

func newAggregator(b *dnsbench.Benchmark, stats []*dnsbench.ResultStats, failed []failedWorker) *Aggregator {
	return &Aggregator{b: b, totals: Merge(b, stats), failed: failed}
}

// Results returns merged results of the workers.
func (a *Aggregator) Results() *BenchmarkResultStats {
	return &a.totals
}

// Display prints the summary of the benchmark, in JSON if the benchmark is configured so.
func (a *Aggregator) Display(w io.Writer) error {
	params := reportParameters{
		benchmark:     a.b,
		outputWriter:  w,
		hist:          a.totals.Hist,
		codeTotals:    a.totals.Codes,
		totalCounters: a.totals.Counters,
		latency:       summarizeLatency(a.totals.answeredRTTs()),
		slips:         summarizeSlips(a.totals.BurstSlips),
		plannedQPS:    plannedQPS(a.b),
		failedWorkers: a.failed,
	}
	params.achievedQPS = achievedQPS(a.b, &a.totals)
	return printer(a.b).print(params)
}

// PrintReport aggregates results of the finished workers, exports them into the configured files and graphs and
// prints formatted summary to the benchmark writer. If there is a fatal error while reporting, an error is returned.
func PrintReport(b *dnsbench.Benchmark, workers []*dnsbench.Worker) error {
	a, err := NewAggregator(b, workers)
	if err != nil {
		return err
	}

	if len(b.PlotDir) != 0 {
		if err := a.Plot(b.PlotDir); err != nil {
			return err
		}
	}

	if b.Csv != "" {
		if err := a.Write(b.Csv); err != nil {
			return err
		}
	}

	if b.Parquet != "" {
		if err := a.WriteParquet(b.Parquet); err != nil {
			return err
		}
	}

	if b.MetricsFile != "" {
		if err := a.WriteMetrics(b.MetricsFile); err != nil {
			return err
		}
	}

	if b.Silent {
		return nil
	}
	return a.Display(b.Writer)
}

func directoryExists(plotDir string) error {
	stat, err := os.Stat(plotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s' path does not point to an existing directory", plotDir)
		}
		return err
	} else if !stat.IsDir() {
		return fmt.Errorf("'%s' is not a path to a directory", plotDir)
	}
	return nil
}

func printer(b *dnsbench.Benchmark) reportPrinter {
	switch {
	case b.JSON:
		return &jsonReporter{}
	default:
		return &standardReporter{}
	}
}

func plannedQPS(b *dnsbench.Benchmark) float64 {
	if b.BurstDelay <= 0 {
		return 0
	}
	return float64(b.Threads) * float64(b.BurstSize) / b.BurstDelay.Seconds()
}

// achievedQPS estimates query rate from the send timestamps. The send window misses one stagger step
// between the workers, which is added back, so a run without any slip yields the planned rate.
func achievedQPS(b *dnsbench.Benchmark, totals *BenchmarkResultStats) float64 {
	if totals.Counters.Sent == 0 || b.Threads == 0 {
		return 0
	}
	window := totals.sendWindow() + b.BurstDelay/time.Duration(b.Threads)
	if window <= 0 {
		return 0
	}
	return float64(totals.Counters.Sent) / window.Seconds()
}

func lossRate(c dnsbench.Counters) float64 {
	if c.Sent == 0 {
		return 0
	}
	return float64(c.TimedOut) / float64(c.Sent) * 100
}

func fileName(b *dnsbench.Benchmark, dir, name string) string {
	return dir + "/" + name + "." + b.PlotFormat
}
