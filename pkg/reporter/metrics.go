package reporter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
)

const metricsNamespace = "dns64perf"

// WriteMetrics writes the results in the Prometheus text format, so they can be picked up by the textfile
// collector of the node exporter.
func (a *Aggregator) WriteMetrics(path string) error {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "queries_total",
		Help:      "The total number of sent queries by outcome",
	}, []string{"outcome"})
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "responses_total",
		Help:      "The total number of answered queries by response code",
	}, []string{"rcode"})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "discarded_datagrams_total",
		Help:      "The total number of received datagrams that did not answer any pending query",
	}, []string{"reason"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "socket_errors_total",
		Help:      "The total number of socket errors",
	}, []string{"op"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "rtt_seconds",
		Help:      "Round trip time of the answered queries in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
	})
	lossRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "loss_ratio",
		Help:      "Ratio of the timed out queries to all sent queries",
	})
	slip := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "burst_slip_seconds",
		Help:      "How late the bursts were sent compared to their deadlines",
	}, []string{"stat"})
	qps := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "query_rate",
		Help:      "Query rate in queries per second",
	}, []string{"kind"})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "failed_workers",
		Help:      "The number of workers whose results are not included",
	})

	registry.MustRegister(queries, responses, discarded, errorsTotal, latency, lossRatio, slip, qps, failed)

	c := a.totals.Counters
	queries.WithLabelValues(dnsbench.Answered.String()).Add(float64(c.Answered))
	queries.WithLabelValues(dnsbench.TimedOut.String()).Add(float64(c.TimedOut))
	for code, v := range a.totals.Codes {
		responses.WithLabelValues(rcodeString(code)).Add(float64(v))
	}
	discarded.WithLabelValues("late").Add(float64(c.Late))
	discarded.WithLabelValues("unmatched").Add(float64(c.Unmatched))
	discarded.WithLabelValues("malformed").Add(float64(c.Malformed))
	errorsTotal.WithLabelValues("send").Add(float64(c.SendErrors))
	errorsTotal.WithLabelValues("receive").Add(float64(c.RecvErrors))
	for _, rtt := range a.totals.answeredRTTs() {
		latency.Observe(rtt.Seconds())
	}
	lossRatio.Set(lossRate(c) / 100)
	slips := summarizeSlips(a.totals.BurstSlips)
	slip.WithLabelValues("mean").Set(slips.mean.Seconds())
	slip.WithLabelValues("max").Set(slips.max.Seconds())
	qps.WithLabelValues("planned").Set(plannedQPS(a.b))
	qps.WithLabelValues("achieved").Set(achievedQPS(a.b, &a.totals))
	failed.Set(float64(len(a.failed)))

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
