package accounting

import (
	"encoding/csv"
	"os"

	"github.com/web3guy0/cryptobot/internal/types"
)

// logWriter appends rows to the trade log CSV, writing the header once
// on creation. No ecosystem CSV writer exists anywhere in the example
// pack; encoding/csv is the correct stdlib tool for a flat delimited
// format with no schema evolution needs.
type logWriter struct {
	file *os.File
	w    *csv.Writer
}

func newLogWriter(path string) (*logWriter, error) {
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	lw := &logWriter{file: f, w: w}
	if os.IsNotExist(statErr) {
		if err := w.Write(types.CSVHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return lw, nil
}

func (lw *logWriter) Write(row types.TradeLogRow) error {
	if err := lw.w.Write(row.Row()); err != nil {
		return err
	}
	lw.w.Flush()
	return lw.w.Error()
}

func (lw *logWriter) Close() error {
	lw.w.Flush()
	return lw.file.Close()
}
