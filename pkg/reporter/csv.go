package reporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tantalor93/dns64perf/pkg/dnsbench"
)

// LostMarker is written into the rtt_ns column of the queries that were not answered.
const LostMarker = "lost"

var csvHeader = []string{"sequence", "address", "outcome", "rtt_ns"}

// Write exports every query into the CSV file ordered by sequence number. The file is written to a temporary file
// in the same directory first and renamed into place, so the file at path is either complete or untouched.
func (a *Aggregator) Write(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file for CSV export: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	for i := range a.totals.Records {
		if err := w.Write(csvRow(&a.totals.Records[i])); err != nil {
			return fmt.Errorf("failed to write CSV export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	return nil
}

func csvRow(rec *dnsbench.QueryRecord) []string {
	rtt := LostMarker
	if rec.State == dnsbench.Answered {
		rtt = strconv.FormatInt(rec.RTT.Nanoseconds(), 10)
	}
	return []string{
		strconv.FormatUint(uint64(rec.Sequence), 10),
		rec.Address.String(),
		rec.State.String(),
		rtt,
	}
}
