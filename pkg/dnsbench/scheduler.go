package dnsbench

import "time"

type schedulerState uint8

const (
	stateIdle schedulerState = iota
	stateSending
	stateDraining
	stateDone
)

func (s schedulerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSending:
		return "sending"
	case stateDraining:
		return "draining"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// burstScheduler computes send deadlines of a worker. Deadlines are always derived from the anchored start,
// so the time spent sending or receiving never shifts the following bursts.
type burstScheduler struct {
	start  time.Time
	delay  time.Duration
	bursts uint32
	state  schedulerState
}

func (s *burstScheduler) deadline(k uint32) time.Time {
	return s.start.Add(time.Duration(k) * s.delay)
}

// StartDeadline returns the anchored start of the worker. Starts of the workers are spread evenly over
// one burst delay, so that bursts of different workers interleave.
func StartDeadline(reference time.Time, worker, threads uint32, delay time.Duration) time.Time {
	return reference.Add(delay / time.Duration(threads) * time.Duration(worker))
}
