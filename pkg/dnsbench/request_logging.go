package dnsbench

import (
	"fmt"
	"log"
	"os"

	"github.com/miekg/dns"
)

// logRequests writes every query of the finished workers into the request log. Logging is done only after
// the workers have finished, so it does not disturb the measurement.
func (b *Benchmark) logRequests(workers []*Worker) error {
	f, err := os.OpenFile(b.RequestLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open request log: %w", err)
	}
	logger := log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	for _, w := range workers {
		rs := w.Result()
		if rs == nil {
			continue
		}
		for i := range rs.Records {
			logRequest(logger, b.codec, rs.WorkerID, &rs.Records[i])
		}
	}
	return f.Close()
}

func logRequest(logger *log.Logger, codec *PacketCodec, workerID uint32, rec *QueryRecord) {
	rcode := "<nil>"
	rtt := "<nil>"
	if rec.State == Answered {
		rcode = dns.RcodeToString[rec.Rcode]
		rtt = rec.RTT.String()
	}
	logger.Printf("worker:[%v] seq:[%d] reqid:[%d] qname:[%s] qtype:[AAAA] socket:[%d] sent:[%s] state:[%s] rcode:[%s] tc:[%t] duration:[%s]",
		workerID, rec.Sequence, uint16(rec.Sequence), codec.QueryName(rec.Address), rec.Socket,
		rec.Sent.Format("15:04:05.000000"), rec.State, rcode, rec.Truncated, rtt)
}
