package reporter

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/miekg/dns"
	"github.com/olekukonko/tablewriter"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
	"github.com/tantalor93/dns64perf/pkg/printutils"
)

type standardReporter struct{}

func (s *standardReporter) print(params reportParameters) error {
	printProgress(params.outputWriter, params.totalCounters)

	if len(params.codeTotals) > 0 {
		printutils.NeutralFprintf(params.outputWriter, "\nDNS response codes:\n")
		codes := make([]int, 0, len(params.codeTotals))
		for k := range params.codeTotals {
			codes = append(codes, k)
		}
		sort.Ints(codes)
		for _, code := range codes {
			printFn := printutils.ErrFprintf
			if code == dns.RcodeSuccess {
				printFn = printutils.SuccessFprintf
			}
			if code == dns.RcodeNameError {
				printFn = printutils.NeutralFprintf
			}
			printFn(params.outputWriter, "\t%s:\t%d\n", rcodeString(code), params.codeTotals[code])
		}
	}

	printutils.NeutralFprintf(params.outputWriter, "\nPlanned query rate:\t%s\n",
		printutils.HighlightSprintf("%0.1f", params.plannedQPS))
	printutils.NeutralFprintf(params.outputWriter, "Achieved query rate:\t%s\n",
		printutils.HighlightSprintf("%0.1f", params.achievedQPS))

	if params.slips.count > 0 {
		printutils.NeutralFprintf(params.outputWriter, "Burst slip, %s bursts\n", printutils.HighlightSprint(params.slips.count))
		printutils.NeutralFprintf(params.outputWriter, "\t mean:\t\t%s\n", printutils.HighlightSprint(roundDuration(params.slips.mean)))
		printutils.NeutralFprintf(params.outputWriter, "\t max:\t\t%s\n", printutils.HighlightSprint(roundDuration(params.slips.max)))
	}

	if params.latency.count > 0 {
		p99 := time.Duration(params.hist.ValueAtQuantile(99))
		p95 := time.Duration(params.hist.ValueAtQuantile(95))
		p90 := time.Duration(params.hist.ValueAtQuantile(90))
		p75 := time.Duration(params.hist.ValueAtQuantile(75))
		p50 := time.Duration(params.hist.ValueAtQuantile(50))

		printutils.NeutralFprintf(params.outputWriter, "DNS timings, %s datapoints\n", printutils.HighlightSprint(params.latency.count))
		printutils.NeutralFprintf(params.outputWriter, "\t min:\t\t%s\n", printutils.HighlightSprint(roundDuration(params.latency.min)))
		printutils.NeutralFprintf(params.outputWriter, "\t mean:\t\t%s\n", printutils.HighlightSprint(roundDuration(params.latency.mean)))
		printutils.NeutralFprintf(params.outputWriter, "\t [+/-sd]:\t%s\n", printutils.HighlightSprint(roundDuration(params.latency.sd)))
		printutils.NeutralFprintf(params.outputWriter, "\t max:\t\t%s\n", printutils.HighlightSprint(roundDuration(params.latency.max)))
		printutils.NeutralFprintf(params.outputWriter, "\t p99:\t\t%s\n", printutils.HighlightSprint(roundDuration(p99)))
		printutils.NeutralFprintf(params.outputWriter, "\t p95:\t\t%s\n", printutils.HighlightSprint(roundDuration(p95)))
		printutils.NeutralFprintf(params.outputWriter, "\t p90:\t\t%s\n", printutils.HighlightSprint(roundDuration(p90)))
		printutils.NeutralFprintf(params.outputWriter, "\t p75:\t\t%s\n", printutils.HighlightSprint(roundDuration(p75)))
		printutils.NeutralFprintf(params.outputWriter, "\t p50:\t\t%s\n", printutils.HighlightSprint(roundDuration(p50)))

		if tc := params.hist.TotalCount(); params.benchmark.HistDisplay && tc > 1 {
			printutils.NeutralFprintf(params.outputWriter, "\nDNS distribution, %s datapoints\n", printutils.HighlightSprint(tc))
			printBars(params.outputWriter, params.hist.Distribution())
		}
	}

	if params.latency.count == 0 {
		printutils.NeutralFprintf(params.outputWriter, "DNS timings, %s datapoints\n", printutils.HighlightSprint(0))
		for _, name := range []string{"min:\t", "mean:\t", "[+/-sd]:", "max:\t"} {
			printutils.NeutralFprintf(params.outputWriter, "\t %s\t%s\n", name, printutils.HighlightSprint("n/a"))
		}
	}

	if len(params.failedWorkers) > 0 {
		printutils.ErrFprintf(params.outputWriter, "\nFailed workers: %d, their queries are not included\n", len(params.failedWorkers))
		for _, f := range params.failedWorkers {
			printutils.ErrFprintf(params.outputWriter, "\tworker %d:\t%v\n", f.id, f.err)
		}
	}

	return nil
}

func printProgress(w io.Writer, c dnsbench.Counters) {
	printutils.NeutralFprintf(w, "\nTotal queries:\t\t%s\n", printutils.HighlightSprint(c.Sent))

	printutils.SuccessFprintf(w, "Answered queries:\t%d\n", c.Answered)
	printutils.ErrFprintf(w, "Timed out queries:\t%d\n", c.TimedOut)
	printutils.NeutralFprintf(w, "Loss rate:\t\t%s\n", printutils.HighlightSprintf("%0.2f%%", lossRate(c)))

	if c.Truncated > 0 {
		printutils.ErrFprintf(w, "Truncated responses:\t%d\n", c.Truncated)
	}
	if c.Late > 0 {
		printutils.ErrFprintf(w, "Late responses:\t\t%d\n", c.Late)
	}
	if c.Unmatched > 0 {
		printutils.ErrFprintf(w, "Unmatched responses:\t%d\n", c.Unmatched)
	}
	if c.Malformed > 0 {
		printutils.ErrFprintf(w, "Malformed responses:\t%d\n", c.Malformed)
	}
	if c.SendErrors > 0 {
		printutils.ErrFprintf(w, "Send errors:\t\t%d\n", c.SendErrors)
	}
	if c.RecvErrors > 0 {
		printutils.ErrFprintf(w, "Receive errors:\t\t%d\n", c.RecvErrors)
	}
}

func printBars(w io.Writer, bars []hdrhistogram.Bar) {
	counts := make([]int64, 0, len(bars))
	lines := make([][]string, 0, len(bars))
	added := false
	var max int64

	for _, b := range bars {
		if b.Count == 0 && !added {
			// trim the start
			continue
		}
		if b.Count > max {
			max = b.Count
		}

		added = true

		line := make([]string, 3)
		lines = append(lines, line)
		counts = append(counts, b.Count)

		line[0] = roundDuration(time.Duration(b.To/2 + b.From/2)).String()
		line[2] = strconv.FormatInt(b.Count, 10)
	}

	for i, l := range lines {
		l[1] = makeBar(counts[i], max)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Latency", "", "Count"})
	table.SetBorder(false)
	table.AppendBulk(lines)
	table.Render()
}

func makeBar(c int64, max int64) string {
	if c == 0 {
		return ""
	}
	t := int((43 * float64(c) / float64(max)) + 0.5)
	return strings.Repeat(printutils.HighlightSprint("▄"), t)
}

func rcodeString(code int) string {
	if s, ok := dns.RcodeToString[code]; ok {
		return s
	}
	return "RCODE" + strconv.Itoa(code)
}
