package dnsbench

import (
	"time"
)

const (
	// DefaultDomain is a default domain suffix of the synthetic query names.
	DefaultDomain = "dns64perf.test"

	// DefaultStartDelay is a default delay between the start of the benchmark and the reference instant
	// from which the send deadlines of all workers are derived.
	DefaultStartDelay = 2 * time.Second

	// DefaultCsvPath is a default path to the file, where per-query results will be exported.
	DefaultCsvPath = "dns64perf.csv"

	// DefaultRequestLogPath is a default path to the file, where the requests will be logged.
	DefaultRequestLogPath = "requests.log"

	// DefaultPlotFormat is a default format for plots.
	DefaultPlotFormat = "svg"

	// DefaultHistMin is a default minimum value tracked by the latency histogram.
	DefaultHistMin = time.Microsecond

	// DefaultHistPrecision is a default precision for histogram.
	DefaultHistPrecision = 1

	// DefaultQuerySize is a default size of buffer for building queries.
	DefaultQuerySize = 512

	// MaxDatagramSize is the size of the buffer used for receiving responses.
	MaxDatagramSize = 65535
)
