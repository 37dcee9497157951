package reporter

import (
	"fmt"

	"github.com/miekg/dns"
	"github.com/tantalor93/dns64perf/pkg/dnsbench"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRecord struct {
	Sequence  int64  `parquet:"name=sequence, type=INT64"`
	Address   string `parquet:"name=address, type=BYTE_ARRAY, convertedtype=UTF8"`
	Socket    int32  `parquet:"name=socket, type=INT32"`
	SentUs    int64  `parquet:"name=sent, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	Outcome   string `parquet:"name=outcome, type=BYTE_ARRAY, convertedtype=UTF8"`
	RttNs     int64  `parquet:"name=rtt_ns, type=INT64"`
	Rcode     string `parquet:"name=rcode, type=BYTE_ARRAY, convertedtype=UTF8"`
	Truncated bool   `parquet:"name=truncated, type=BOOLEAN"`
}

func newParquetRecord(rec *dnsbench.QueryRecord) parquetRecord {
	res := parquetRecord{
		Sequence: int64(rec.Sequence),
		Address:  rec.Address.String(),
		Socket:   int32(rec.Socket),
		SentUs:   rec.Sent.UnixMicro(),
		Outcome:  rec.State.String(),
		RttNs:    -1,
	}
	if rec.State == dnsbench.Answered {
		res.RttNs = rec.RTT.Nanoseconds()
		res.Rcode = dns.RcodeToString[rec.Rcode]
		res.Truncated = rec.Truncated
	}
	return res
}

// WriteParquet exports every query into the Parquet file ordered by sequence number, RTT of the queries that
// were not answered is -1.
func (a *Aggregator) WriteParquet(path string) error {
	file, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	pw, err := writer.NewParquetWriter(file, new(parquetRecord), 4)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	for i := range a.totals.Records {
		if err := pw.Write(newParquetRecord(&a.totals.Records[i])); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("failed to stop parquet writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close parquet file: %w", err)
	}
	return nil
}
