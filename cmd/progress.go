package cmd

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progress shows how much of the planned benchmark time has elapsed. It is driven by the clock only, so it
// does not touch any state of the running workers.
type progress struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	exit chan struct{}
}

func startProgress(w io.Writer, planned time.Duration, color bool) *progress {
	bar := progressbar.NewOptions64(planned.Milliseconds(),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Benchmarking"),
		progressbar.OptionEnableColorCodes(color),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	p := &progress{bar: bar, done: make(chan struct{}), exit: make(chan struct{})}

	go func() {
		defer close(p.exit)
		start := time.Now()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				p.bar.Finish()
				return
			case <-ticker.C:
				elapsed := time.Since(start)
				if elapsed > planned {
					elapsed = planned
				}
				p.bar.Set64(elapsed.Milliseconds())
			}
		}
	}()
	return p
}

// stop finishes the progress bar and waits until it is cleared.
func (p *progress) stop() {
	close(p.done)
	<-p.exit
}
