package cmd

import (
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
	"github.com/tantalor93/dns64perf/pkg/printutils"
	"github.com/tantalor93/dns64perf/pkg/reporter"
)

// Version is set during release of project during build process.
var Version = "development"

type options struct {
	benchmark dnsbench.Benchmark
	args      positionalArgs
	progress  bool
}

func newApp(o *options) *kingpin.Application {
	pApp := kingpin.New("dns64perf", "A DNS64 server benchmark sending bursts of AAAA queries for the addresses of an IPv4 subnet.")
	pApp.Version(Version)

	b := &o.benchmark

	pApp.Arg("server", "IPv4 or IPv6 address of the benchmarked DNS64 server.").Required().StringVar(&o.args.server)

	pApp.Arg("port", "Port of the benchmarked DNS64 server.").Required().StringVar(&o.args.port)

	pApp.Arg("subnet", "IPv4 subnet in CIDR notation, each query asks for a name encoding one address of the subnet, "+
		"for example 10.0.0.0/8.").Required().StringVar(&o.args.subnet)

	pApp.Arg("requests", "Total number of queries, must be divisible by threads*burst.").Required().StringVar(&o.args.requests)

	pApp.Arg("burst", "Number of queries sent by a thread back to back in one burst.").Required().StringVar(&o.args.burst)

	pApp.Arg("threads", "Number of sending threads.").Required().StringVar(&o.args.threads)

	pApp.Arg("ports", "Number of UDP sockets with distinct source ports per thread.").Required().StringVar(&o.args.ports)

	pApp.Arg("delay", "Delay between the starts of two consecutive bursts of a thread in nanoseconds.").
		Required().StringVar(&o.args.delay)

	pApp.Arg("timeout", "Time in seconds a query waits for its response before it is counted as lost, fractions are allowed.").
		Required().StringVar(&o.args.timeout)

	pApp.Flag("domain", "Domain suffix of the query names.").
		Default(dnsbench.DefaultDomain).StringVar(&b.Domain)

	pApp.Flag("start-delay", "Delay between the start of the benchmark and the first burst, it gives the threads time to start.").
		Default(dnsbench.DefaultStartDelay.String()).DurationVar(&b.StartDelay)

	pApp.Flag("source-port-base", "First source port, each thread binds consecutive ports from it. "+
		"0 lets the kernel choose the ports.").Default("0").Uint16Var(&b.SourcePortBase)

	pApp.Flag("recurse", "Set RD bit in the queries. Enabled by default.").
		Short('r').Default("true").BoolVar(&b.Recurse)

	pApp.Flag("pin", "Pin each thread to a dedicated CPU core. Enabled by default.").
		Default("true").BoolVar(&b.Pin)

	pApp.Flag("min", "Minimum value for timing histogram.").
		Default(dnsbench.DefaultHistMin.String()).DurationVar(&b.HistMin)

	pApp.Flag("max", "Maximum value for timing histogram, the timeout is used if not set.").DurationVar(&b.HistMax)

	pApp.Flag("precision", "Significant figure for histogram precision.").
		Default("1").PlaceHolder("[1-5]").IntVar(&b.HistPre)

	pApp.Flag("distribution", "Display distribution histogram of timings to stdout. Enabled by default.").
		Default("true").BoolVar(&b.HistDisplay)

	pApp.Flag("csv", "Export per-query results to CSV, empty value disables the export.").
		Default(dnsbench.DefaultCsvPath).PlaceHolder("/path/to/file.csv").StringVar(&b.Csv)

	pApp.Flag("parquet", "Export per-query results to Parquet.").
		Default("").PlaceHolder("/path/to/file.parquet").StringVar(&b.Parquet)

	pApp.Flag("json", "Report benchmark results as JSON.").BoolVar(&b.JSON)

	pApp.Flag("silent", "Disable stdout.").Default("false").BoolVar(&b.Silent)

	pApp.Flag("color", "ANSI Color output. Enabled by default.").
		Default("true").BoolVar(&b.Color)

	pApp.Flag("plot", "Plot benchmark results and export them to the directory.").
		Default("").PlaceHolder("/path/to/folder").StringVar(&b.PlotDir)

	pApp.Flag("plotf", "Format of graphs. Supported formats: svg, png, jpg, pdf.").
		Default(dnsbench.DefaultPlotFormat).EnumVar(&b.PlotFormat, "svg", "png", "jpg", "pdf")

	pApp.Flag("metrics-file", "Write benchmark metrics in Prometheus text format to the file.").
		Default("").PlaceHolder("/path/to/file.prom").StringVar(&b.MetricsFile)

	pApp.Flag("log-requests", "Log results of the queries to the request log file.").
		Default("false").BoolVar(&b.RequestLogEnabled)

	pApp.Flag("log-requests-path", "Path to the request log file.").
		Default(dnsbench.DefaultRequestLogPath).StringVar(&b.RequestLogPath)

	pApp.Flag("allow-partial", "Report results of the remaining threads when some threads fail.").
		Default("false").BoolVar(&b.AllowPartial)

	pApp.Flag("progress", "Show progress of the benchmark on stderr.").
		Default("false").BoolVar(&o.progress)

	return pApp
}

// Execute starts main logic of command.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var o options
	pApp := newApp(&o)
	pApp.UsageWriter(stdout).ErrorWriter(stderr)

	if _, err := pApp.Parse(args); err != nil {
		pApp.Errorf("%s, try --help", err)
		return 1
	}

	b := &o.benchmark
	b.Writer = stdout
	b.ErrWriter = stderr
	color.NoColor = !b.Color

	if err := o.args.apply(b); err != nil {
		printutils.ErrFprintf(stderr, "%s\n", diagnostic(err))
		return 1
	}
	if err := b.Validate(); err != nil {
		printutils.ErrFprintf(stderr, "%s\n", diagnostic(err))
		return 1
	}

	var bar *progress
	if o.progress && !b.Silent && !b.JSON {
		bar = startProgress(stderr, b.PlannedDuration(), b.Color)
	}
	workers, err := b.Run()
	if bar != nil {
		bar.stop()
	}

	if err != nil {
		if workers == nil || !b.AllowPartial {
			printutils.ErrFprintf(stderr, "There was an error while running benchmark: %s\n", err.Error())
			return 1
		}
		printutils.ErrFprintf(stderr, "Some threads failed, reporting results of the remaining threads: %s\n", err.Error())
	}

	if err := reporter.PrintReport(b, workers); err != nil {
		printutils.ErrFprintf(stderr, "There was an error while printing report: %s\n", err.Error())
		return 1
	}
	return 0
}
