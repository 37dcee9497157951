package reporter

import (
	"encoding/json"
	"math"
	"time"
)

type jsonReporter struct{}

type latencyStats struct {
	MinUs  int64 `json:"minUs"`
	MeanUs int64 `json:"meanUs"`
	StdUs  int64 `json:"stdUs"`
	MaxUs  int64 `json:"maxUs"`
	P99Us  int64 `json:"p99Us"`
	P95Us  int64 `json:"p95Us"`
	P90Us  int64 `json:"p90Us"`
	P75Us  int64 `json:"p75Us"`
	P50Us  int64 `json:"p50Us"`
}

type slipStats struct {
	Bursts int   `json:"bursts"`
	MeanUs int64 `json:"meanUs"`
	MaxUs  int64 `json:"maxUs"`
}

type histogramPoint struct {
	LatencyUs int64 `json:"latencyUs"`
	Count     int64 `json:"count"`
}

type jsonFailedWorker struct {
	Worker uint32 `json:"worker"`
	Error  string `json:"error"`
}

type jsonResult struct {
	TotalQueries            int64              `json:"totalQueries"`
	TotalAnswered           int64              `json:"totalAnswered"`
	TotalTimedOut           int64              `json:"totalTimedOut"`
	LossRatePercent         float64            `json:"lossRatePercent"`
	TotalTruncatedResponses int64              `json:"totalTruncatedResponses"`
	TotalLateResponses      int64              `json:"totalLateResponses"`
	TotalUnmatched          int64              `json:"totalUnmatchedResponses"`
	TotalMalformed          int64              `json:"totalMalformedResponses"`
	TotalSendErrors         int64              `json:"totalSendErrors"`
	TotalReceiveErrors      int64              `json:"totalReceiveErrors"`
	ResponseRcodes          map[string]int64   `json:"responseRcodes,omitempty"`
	PlannedQueriesPerSecond float64            `json:"plannedQueriesPerSecond"`
	QueriesPerSecond        float64            `json:"queriesPerSecond"`
	BurstSlip               slipStats          `json:"burstSlip"`
	LatencyStats            latencyStats       `json:"latencyStats"`
	LatencyDistribution     []histogramPoint   `json:"latencyDistribution,omitempty"`
	FailedWorkers           []jsonFailedWorker `json:"failedWorkers,omitempty"`
}

func (s *jsonReporter) print(params reportParameters) error {
	codeTotalsMapped := make(map[string]int64)
	for k, v := range params.codeTotals {
		codeTotalsMapped[rcodeString(k)] = v
	}

	var res []histogramPoint

	if params.benchmark.HistDisplay {
		dist := params.hist.Distribution()
		for _, d := range dist {
			if d.Count == 0 {
				continue
			}
			res = append(res, histogramPoint{
				LatencyUs: roundDuration(time.Duration(d.To/2 + d.From/2)).Microseconds(),
				Count:     d.Count,
			})
		}

		var dedupRes []histogramPoint
		for _, r := range res {
			if n := len(dedupRes); n > 0 && dedupRes[n-1].LatencyUs == r.LatencyUs {
				dedupRes[n-1].Count += r.Count
				continue
			}
			dedupRes = append(dedupRes, r)
		}
		res = dedupRes
	}

	var failed []jsonFailedWorker
	for _, f := range params.failedWorkers {
		failed = append(failed, jsonFailedWorker{Worker: f.id, Error: f.err.Error()})
	}

	result := jsonResult{
		TotalQueries:            params.totalCounters.Sent,
		TotalAnswered:           params.totalCounters.Answered,
		TotalTimedOut:           params.totalCounters.TimedOut,
		LossRatePercent:         math.Round(lossRate(params.totalCounters)*100) / 100,
		TotalTruncatedResponses: params.totalCounters.Truncated,
		TotalLateResponses:      params.totalCounters.Late,
		TotalUnmatched:          params.totalCounters.Unmatched,
		TotalMalformed:          params.totalCounters.Malformed,
		TotalSendErrors:         params.totalCounters.SendErrors,
		TotalReceiveErrors:      params.totalCounters.RecvErrors,
		ResponseRcodes:          codeTotalsMapped,
		PlannedQueriesPerSecond: math.Round(params.plannedQPS*100) / 100,
		QueriesPerSecond:        math.Round(params.achievedQPS*100) / 100,
		BurstSlip: slipStats{
			Bursts: params.slips.count,
			MeanUs: roundDuration(params.slips.mean).Microseconds(),
			MaxUs:  roundDuration(params.slips.max).Microseconds(),
		},
		LatencyDistribution: res,
		FailedWorkers:       failed,
	}
	if params.latency.count > 0 {
		result.LatencyStats = latencyStats{
			MinUs:  roundDuration(params.latency.min).Microseconds(),
			MeanUs: roundDuration(params.latency.mean).Microseconds(),
			StdUs:  roundDuration(params.latency.sd).Microseconds(),
			MaxUs:  roundDuration(params.latency.max).Microseconds(),
			P99Us:  roundDuration(time.Duration(params.hist.ValueAtQuantile(99))).Microseconds(),
			P95Us:  roundDuration(time.Duration(params.hist.ValueAtQuantile(95))).Microseconds(),
			P90Us:  roundDuration(time.Duration(params.hist.ValueAtQuantile(90))).Microseconds(),
			P75Us:  roundDuration(time.Duration(params.hist.ValueAtQuantile(75))).Microseconds(),
			P50Us:  roundDuration(time.Duration(params.hist.ValueAtQuantile(50))).Microseconds(),
		}
	}

	return json.NewEncoder(params.outputWriter).Encode(result)
}
