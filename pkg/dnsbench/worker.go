package dnsbench

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWorkerStarted is returned when Worker.Start is called more than once.
	ErrWorkerStarted = errors.New("worker was already started")

	// ErrNotValidated is returned when Worker is created from Benchmark that was not validated.
	ErrNotValidated = errors.New("benchmark configuration was not validated")

	errWouldBlock = errors.New("socket would block")
)

// Worker runs one thread's partition of the benchmark. Worker owns its sockets, pending table and results,
// none of them is accessed by other goroutines while the worker runs.
type Worker struct {
	id      uint32
	first   uint32
	count   uint32
	burst   uint32
	timeout time.Duration

	codec   *PacketCodec
	pool    *SocketPool
	sched   burstScheduler
	pending pendingTable
	stats   *ResultStats

	// expired is index of the oldest record, which was not yet checked for timeout.
	expired  int
	lastSent time.Time

	qbuf []byte
	rbuf []byte
	err  error
}

// NewWorker creates worker for the sequence numbers [first, first+count) which starts sending at the start deadline.
// Sockets of the worker are opened here, so any failure is reported before the benchmark traffic begins.
func NewWorker(b *Benchmark, id, first, count uint32, start time.Time) (*Worker, error) {
	if !b.validated {
		return nil, ErrNotValidated
	}
	var firstPort uint16
	if b.SourcePortBase != 0 {
		firstPort = b.SourcePortBase + uint16(id)*b.PortsPerThread
	}
	pool, err := NewSocketPool(b.server, int(b.PortsPerThread), firstPort)
	if err != nil {
		return nil, err
	}
	return &Worker{
		id:      id,
		first:   first,
		count:   count,
		burst:   b.BurstSize,
		timeout: b.Timeout,
		codec:   b.codec,
		pool:    pool,
		sched: burstScheduler{
			start:  start,
			delay:  b.BurstDelay,
			bursts: count / b.BurstSize,
		},
		pending: newPendingTable(int(b.BurstSize)),
		stats:   newResultStats(b, id, count),
		qbuf:    make([]byte, DefaultQuerySize),
		rbuf:    make([]byte, MaxDatagramSize),
	}, nil
}

// ID returns index of the worker.
func (w *Worker) ID() uint32 {
	return w.id
}

// StartDeadline returns the instant when the worker sends its first burst.
func (w *Worker) StartDeadline() time.Time {
	return w.sched.start
}

// Start runs the worker to completion on the calling goroutine. It sends all bursts of the worker and waits until
// every query is either answered or timed out. Start can be called only once.
func (w *Worker) Start() error {
	if w.sched.state != stateIdle {
		return ErrWorkerStarted
	}
	defer w.pool.Close()

	w.err = w.run()
	w.expireAll()
	w.sched.state = stateDone
	return w.err
}

// Done reports whether the worker has finished.
func (w *Worker) Done() bool {
	return w.sched.state == stateDone
}

// Result returns results of the worker, nil is returned while the worker has not finished.
func (w *Worker) Result() *ResultStats {
	if !w.Done() {
		return nil
	}
	return w.stats
}

// Err returns error which stopped the worker, if any.
func (w *Worker) Err() error {
	return w.err
}

func (w *Worker) close() error {
	return w.pool.Close()
}

func (w *Worker) run() error {
	if err := w.waitUntil(w.sched.start); err != nil {
		return err
	}
	w.sched.state = stateSending

	for k := uint32(0); k < w.sched.bursts; k++ {
		deadline := w.sched.deadline(k)
		if err := w.waitUntil(deadline); err != nil {
			return err
		}
		w.stats.BurstSlips = append(w.stats.BurstSlips, time.Since(deadline))
		seq := w.first + k*w.burst
		for j := uint32(0); j < w.burst; j++ {
			w.send(seq + j)
		}
	}

	w.sched.state = stateDraining
	return w.drain()
}

// waitUntil receives responses and expires overdue queries until the deadline.
func (w *Worker) waitUntil(deadline time.Time) error {
	for {
		now := time.Now()
		w.expire(now)
		if !now.Before(deadline) {
			return nil
		}
		if err := w.poll(deadline.Sub(now)); err != nil {
			return err
		}
	}
}

// drain receives responses until no query is pending or the timeout elapsed since the last sent query.
func (w *Worker) drain() error {
	deadline := w.lastSent.Add(w.timeout)
	for w.pending.len() > 0 {
		now := time.Now()
		w.expire(now)
		if !now.Before(deadline) {
			return nil
		}
		if err := w.poll(deadline.Sub(now)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) poll(timeout time.Duration) error {
	ready, err := w.pool.Wait(timeout)
	if err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}
	if ready {
		w.receive()
	}
	return nil
}

func (w *Worker) send(seq uint32) {
	rec := QueryRecord{
		Sequence: seq,
		Address:  w.codec.cursor.Address(seq),
		Socket:   int(seq % uint32(w.pool.Len())),
		State:    Pending,
	}
	pkt, err := w.codec.Build(w.qbuf, seq)
	rec.Sent = time.Now()
	if err == nil {
		err = w.pool.Send(rec.Socket, pkt)
	}
	if err != nil {
		// the query stays pending and times out eventually
		w.stats.Counters.SendErrors++
	}

	w.stats.Records = append(w.stats.Records, rec)
	w.pending.insert(seq, len(w.stats.Records)-1)
	w.stats.Counters.Sent++
	w.lastSent = rec.Sent
}

func (w *Worker) receive() {
	for i := 0; i < w.pool.Len(); i++ {
		if !w.pool.Readable(i) {
			continue
		}
		for {
			n, err := w.pool.Recv(i, w.rbuf)
			if errors.Is(err, errWouldBlock) {
				break
			}
			if err != nil {
				w.stats.Counters.RecvErrors++
				break
			}
			w.handle(w.rbuf[:n], time.Now())
		}
	}
}

// handle correlates the datagram with the pending query. The first result wins, anything that does not match
// a pending query is dropped.
func (w *Worker) handle(pkt []byte, received time.Time) {
	resp, ok := w.codec.Parse(pkt)
	if !ok {
		w.stats.Counters.Malformed++
		return
	}
	idx, ok := w.pending.take(resp.Key)
	if !ok {
		w.stats.Counters.Unmatched++
		return
	}
	rec := &w.stats.Records[idx]
	rtt := received.Sub(rec.Sent)
	if rtt >= w.timeout {
		w.stats.Counters.Late++
		w.stats.timeout(rec)
		return
	}
	w.stats.answer(rec, resp, rtt)
}

// expire times out pending queries sent at least timeout before now. Records are kept in send order,
// so the scan stops at the first query which is not overdue.
func (w *Worker) expire(now time.Time) {
	recs := w.stats.Records
	for w.expired < len(recs) && !recs[w.expired].Sent.Add(w.timeout).After(now) {
		w.finalize(&recs[w.expired])
		w.expired++
	}
}

func (w *Worker) expireAll() {
	recs := w.stats.Records
	for ; w.expired < len(recs); w.expired++ {
		w.finalize(&recs[w.expired])
	}
}

func (w *Worker) finalize(rec *QueryRecord) {
	if rec.State != Pending {
		return
	}
	w.pending.remove(rec.Sequence)
	w.stats.timeout(rec)
}
