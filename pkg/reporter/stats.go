package reporter

import (
	"time"

	"github.com/montanaflynn/stats"
)

// latencySummary holds exact statistics of the round trip times of the answered queries.
type latencySummary struct {
	count int
	min   time.Duration
	mean  time.Duration
	max   time.Duration
	sd    time.Duration
}

type slipSummary struct {
	count int
	mean  time.Duration
	max   time.Duration
}

func summarizeLatency(rtts []time.Duration) latencySummary {
	data := durationsData(rtts)
	if len(data) == 0 {
		return latencySummary{}
	}
	min, err := stats.Min(data)
	if err != nil {
		return latencySummary{}
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return latencySummary{}
	}
	max, err := stats.Max(data)
	if err != nil {
		return latencySummary{}
	}
	sd, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return latencySummary{}
	}
	return latencySummary{
		count: len(data),
		min:   time.Duration(min),
		mean:  time.Duration(mean),
		max:   time.Duration(max),
		sd:    time.Duration(sd),
	}
}

func summarizeSlips(slips []time.Duration) slipSummary {
	data := durationsData(slips)
	if len(data) == 0 {
		return slipSummary{}
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return slipSummary{}
	}
	max, err := stats.Max(data)
	if err != nil {
		return slipSummary{}
	}
	return slipSummary{count: len(data), mean: time.Duration(mean), max: time.Duration(max)}
}

// roundDuration trims precision of the duration, so it is readable in the report.
func roundDuration(dur time.Duration) time.Duration {
	switch {
	case dur > time.Minute:
		return dur.Round(10 * time.Second)
	case dur > time.Second:
		return dur.Round(10 * time.Millisecond)
	case dur > time.Millisecond:
		return dur.Round(10 * time.Microsecond)
	case dur > time.Microsecond:
		return dur.Round(10 * time.Nanosecond)
	default:
		return dur
	}
}

func durationsData(durations []time.Duration) stats.Float64Data {
	data := make(stats.Float64Data, 0, len(durations))
	for _, d := range durations {
		data = append(data, float64(d))
	}
	return data
}
