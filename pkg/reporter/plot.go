package reporter

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"time"

	"github.com/miekg/dns"
	"github.com/montanaflynn/stats"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// plotBucket is the width of the time buckets of the time dependant graphs.
const plotBucket = 100 * time.Millisecond

// Plot exports graphs of the results into a new graphs-<timestamp> subdirectory of the plot directory.
func (a *Aggregator) Plot(plotDir string) error {
	if err := directoryExists(plotDir); err != nil {
		return fmt.Errorf("unable to plot results: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	dir := fmt.Sprintf("%s/graphs-%s", plotDir, now)
	if err := os.Mkdir(dir, os.ModePerm); err != nil {
		return fmt.Errorf("unable to plot results: %w", err)
	}

	rtts := a.totals.answeredRTTs()
	start := a.totals.firstSent()
	plotHistogramLatency(fileName(a.b, dir, "latency-histogram"), rtts)
	plotBoxPlotLatency(fileName(a.b, dir, "latency-boxplot"), a.b.Server, rtts)
	plotResponses(fileName(a.b, dir, "responses-barchart"), a.totals.Codes)
	plotLineThroughput(fileName(a.b, dir, "throughput-lineplot"), start, a.totals.Records)
	plotLineLatencies(fileName(a.b, dir, "latency-lineplot"), start, a.totals.Records)
	plotLossRate(fileName(a.b, dir, "lossrate-lineplot"), start, a.totals.Records)
	plotHistogramSlips(fileName(a.b, dir, "burstslip-histogram"), a.totals.BurstSlips)
	return nil
}

func plotHistogramLatency(file string, rtts []time.Duration) {
	if len(rtts) == 0 {
		// nothing to plot
		return
	}
	p := plot.New()
	p.Title.Text = "Latencies distribution"
	p.X.Label.Text = "Latencies (ms)"
	p.Y.Label.Text = "Number of requests"
	plotDurationHistogram(p, file, rtts)
}

func plotHistogramSlips(file string, slips []time.Duration) {
	if len(slips) == 0 {
		// nothing to plot
		return
	}
	p := plot.New()
	p.Title.Text = "Burst slip distribution"
	p.X.Label.Text = "Slip (ms)"
	p.Y.Label.Text = "Number of bursts"
	plotDurationHistogram(p, file, slips)
}

func plotDurationHistogram(p *plot.Plot, file string, durations []time.Duration) {
	values := millisecondValues(durations)
	hist, err := plotter.NewHist(values, numBins(values))
	if err != nil {
		panic(err)
	}
	p.X.Tick.Marker = hplot.Ticks{N: 5, Format: "%.2f"}
	p.Y.Tick.Marker = hplot.Ticks{N: 5, Format: "%.0f"}
	hist.FillColor = color.RGBA{R: 175, G: 238, B: 238, A: 255}
	p.Add(hist)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save plot.", err)
	}
}

func millisecondValues(durations []time.Duration) plotter.Values {
	values := make(plotter.Values, 0, len(durations))
	for _, v := range durations {
		values = append(values, float64(v)/float64(time.Millisecond))
	}
	return values
}

// numBins calculates number of bins for histogram.
func numBins(values plotter.Values) int {
	n := float64(len(values))

	// small dataset
	if n < 100 {
		sqrt := math.Sqrt(n)
		return int(math.Max(1, math.Min(15, sqrt)))
	}

	// medium dataset - use Rice's rule
	if n < 1000 {
		rice := 2 * math.Cbrt(n)
		return int(math.Min(30, rice))
	}

	// large dataset - use Doane's rule
	// Calculate skewness
	skewness := stat.Skew(values, nil)
	if math.IsNaN(skewness) {
		// all values are equal
		skewness = 0
	}

	// Calculate standard error of skewness
	sigmaG := math.Sqrt(6 * (n - 2) / ((n + 1) * (n + 3)))
	doane := 1 + math.Log2(n) + math.Log2(1+math.Abs(skewness)/sigmaG)
	return int(math.Min(50, doane))
}

func plotBoxPlotLatency(file, server string, rtts []time.Duration) {
	if len(rtts) == 0 {
		// nothing to plot
		return
	}
	values := millisecondValues(rtts)
	p := plot.New()
	p.Title.Text = "Latencies distribution"
	p.Y.Label.Text = "Latencies (ms)"
	p.Y.Tick.Marker = hplot.Ticks{N: 3, Format: "%.2f"}
	p.NominalX(server)

	boxplot, err := plotter.NewBoxPlot(vg.Length(120), 0, values)
	if err != nil {
		panic(err)
	}
	boxplot.FillColor = color.RGBA{R: 127, G: 188, B: 165, A: 255}
	p.Add(boxplot)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save plot.", err)
	}
}

func plotResponses(file string, rcodes map[int]int64) {
	if len(rcodes) == 0 {
		// nothing to plot
		return
	}
	sortedKeys := make([]int, 0)
	for k := range rcodes {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Ints(sortedKeys)

	colors := []color.Color{
		color.RGBA{R: 122, G: 195, B: 106, A: 255},
		color.RGBA{R: 241, G: 90, B: 96, A: 255},
		color.RGBA{R: 90, G: 155, B: 212, A: 255},
		color.RGBA{R: 250, G: 167, B: 91, A: 255},
		color.RGBA{R: 158, G: 103, B: 171, A: 255},
		color.RGBA{R: 206, G: 112, B: 88, A: 255},
		color.RGBA{R: 215, G: 127, B: 180, A: 255},
	}
	colors = append(colors, plotutil.DarkColors...)

	p := plot.New()
	p.Title.Text = "Response code distribution"
	p.NominalX("Response codes")

	width := vg.Points(40)

	c := 0
	off := -vg.Length(len(rcodes)/2) * width
	for _, v := range sortedKeys {
		bar, err := plotter.NewBarChart(plotter.Values{float64(rcodes[v])}, width)
		if err != nil {
			panic(err)
		}
		p.Legend.Add(dns.RcodeToString[v], bar)
		bar.Color = colors[c%len(colors)]
		bar.Offset = off
		p.Add(bar)
		c++
		off += width
	}

	p.Y.Label.Text = "Number of requests"
	p.Y.Tick.Marker = hplot.Ticks{N: 3, Format: "%.0f"}
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save plot.", err)
	}
}

// bucketOf returns index of the time bucket the instant falls into.
func bucketOf(start, t time.Time) int64 {
	return int64(t.Sub(start) / plotBucket)
}

func bucketSeconds(bucket int64) float64 {
	return (time.Duration(bucket) * plotBucket).Seconds()
}

func plotLineThroughput(file string, start time.Time, records []dnsbench.QueryRecord) {
	if len(records) == 0 {
		// nothing to plot
		return
	}
	m := make(map[int64]int64)
	for i := range records {
		m[bucketOf(start, records[i].Sent)]++
	}

	values := countsPerSecond(m)

	p := plot.New()
	p.Title.Text = "Throughput per second"
	p.X.Label.Text = "Time of test (s)"
	p.X.Tick.Marker = hplot.Ticks{N: 3, Format: "%.1f"}
	p.Y.Label.Text = "Number of requests (per sec)"
	p.Y.Tick.Marker = hplot.Ticks{N: 3, Format: "%.0f"}

	l, err := plotter.NewLine(values)
	if err != nil {
		panic(err)
	}
	l.Width = vg.Points(0.5)
	l.FillColor = color.RGBA{R: 175, G: 238, B: 238, A: 255}
	p.Add(l)

	scatter, err := plotter.NewScatter(values)
	if err != nil {
		panic(err)
	}
	scatter.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save plot.", err)
	}
}

// countsPerSecond converts counts per time bucket into rate per second sorted by time.
func countsPerSecond(m map[int64]int64) plotter.XYs {
	values := make(plotter.XYs, 0, len(m))
	for k, v := range m {
		values = append(values, plotter.XY{X: bucketSeconds(k), Y: float64(v) / plotBucket.Seconds()})
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].X < values[j].X
	})
	return values
}

type latencyMeasurements struct {
	p99 float64
	p95 float64
	p90 float64
	p50 float64
}

func plotLineLatencies(file string, start time.Time, records []dnsbench.QueryRecord) {
	timings := make(map[int64][]float64)
	for i := range records {
		if records[i].State != dnsbench.Answered {
			continue
		}
		bucket := bucketOf(start, records[i].Sent)
		timings[bucket] = append(timings[bucket], float64(records[i].RTT)/float64(time.Millisecond))
	}
	if len(timings) == 0 {
		// nothing to plot
		return
	}

	measurements := make(map[int64]latencyMeasurements)
	for bucket, values := range timings {
		collectMeasurements(values, measurements, bucket)
	}

	var p99values plotter.XYs
	var p95values plotter.XYs
	var p90values plotter.XYs
	var p50values plotter.XYs

	for k, v := range measurements {
		x := bucketSeconds(k)
		p99values = append(p99values, plotter.XY{X: x, Y: v.p99})
		p95values = append(p95values, plotter.XY{X: x, Y: v.p95})
		p90values = append(p90values, plotter.XY{X: x, Y: v.p90})
		p50values = append(p50values, plotter.XY{X: x, Y: v.p50})
	}

	less := func(xys plotter.XYs) func(i, j int) bool {
		return func(i, j int) bool {
			return xys[i].X < xys[j].X
		}
	}

	sort.SliceStable(p99values, less(p99values))
	sort.SliceStable(p95values, less(p95values))
	sort.SliceStable(p90values, less(p90values))
	sort.SliceStable(p50values, less(p50values))

	p := plot.New()
	p.Title.Text = "Response latencies"
	p.X.Label.Text = "Time of test (s)"
	p.Y.Label.Text = "Latency (ms)"

	plotLine(p, p99values, plotutil.DarkColors[0], plotutil.SoftColors[0], "p99")
	plotLine(p, p95values, plotutil.DarkColors[1], plotutil.SoftColors[1], "p95")
	plotLine(p, p90values, plotutil.DarkColors[2], plotutil.SoftColors[2], "p90")
	plotLine(p, p50values, plotutil.DarkColors[3], plotutil.SoftColors[3], "p50")

	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save plot.", err)
	}
}

func collectMeasurements(timings []float64, measurements map[int64]latencyMeasurements, offset int64) {
	p99, err := stats.Percentile(timings, 99)
	if err != nil {
		panic(err)
	}
	p95, err := stats.Percentile(timings, 95)
	if err != nil {
		panic(err)
	}
	p90, err := stats.Percentile(timings, 90)
	if err != nil {
		panic(err)
	}
	p50, err := stats.Percentile(timings, 50)
	if err != nil {
		panic(err)
	}
	measure := latencyMeasurements{}
	measure.p99 = p99
	measure.p95 = p95
	measure.p90 = p90
	measure.p50 = p50
	measurements[offset] = measure
}

func plotLossRate(file string, start time.Time, records []dnsbench.QueryRecord) {
	m := make(map[int64]int64)
	for i := range records {
		if records[i].State == dnsbench.TimedOut {
			m[bucketOf(start, records[i].Sent)]++
		}
	}
	if len(m) == 0 {
		// nothing to plot
		return
	}

	values := countsPerSecond(m)

	p := plot.New()
	p.Title.Text = "Timed out queries over time"
	p.X.Label.Text = "Time of test (s)"
	p.X.Tick.Marker = hplot.Ticks{N: 3, Format: "%.1f"}
	p.Y.Label.Text = "Number of timeouts (per sec)"
	p.Y.Tick.Marker = hplot.Ticks{N: 3, Format: "%.0f"}

	l, err := plotter.NewLine(values)
	if err != nil {
		panic(err)
	}
	l.Width = vg.Points(0.5)
	p.Add(l)

	scatter, err := plotter.NewScatter(values)
	if err != nil {
		panic(err)
	}
	scatter.Color = color.RGBA{R: 238, G: 46, B: 47, A: 255}
	scatter.Shape = draw.CircleGlyph{}

	p.Add(scatter)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save plot.", err)
	}
}

func plotLine(p *plot.Plot, values plotter.XYs, color color.Color, fill color.Color, name string) {
	l, err := plotter.NewLine(values)
	if err != nil {
		panic(err)
	}
	l.Color = color
	l.FillColor = fill
	p.Add(l)
	p.Legend.Add(name, l)
	scatter, err := plotter.NewScatter(values)
	if err != nil {
		panic(err)
	}
	scatter.Color = color
	scatter.Shape = draw.CircleGlyph{}
	p.Add(scatter)
}
