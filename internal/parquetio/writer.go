// Package parquetio writes completed query-log statistics to Parquet and
// reads them back.
package parquetio

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/qlcheck/internal/model"
)

const writeBatchSize = 1024

// Writer buffers statistics and writes them as StatisticRow records.
type Writer struct {
	file   *os.File
	writer *parquet.GenericWriter[model.StatisticRow]
	buf    []model.StatisticRow
	rows   int64
}

// Create creates (or truncates) path for writing.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}
	w := parquet.NewGenericWriter[model.StatisticRow](f, parquet.Compression(&parquet.Zstd))
	return &Writer{
		file:   f,
		writer: w,
		buf:    make([]model.StatisticRow, 0, writeBatchSize),
	}, nil
}

// Write appends one finished statistic.
func (w *Writer) Write(s *model.Statistic) error {
	w.buf = append(w.buf, model.NewStatisticRow(s))
	if len(w.buf) == cap(w.buf) {
		return w.flush()
	}
	return nil
}

// Rows is the number of statistics written so far.
func (w *Writer) Rows() int64 {
	return w.rows + int64(len(w.buf))
}

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	n, err := w.writer.Write(w.buf)
	w.rows += int64(n)
	w.buf = w.buf[:0]
	if err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

// Close flushes buffered rows, writes the footer and closes the file.
func (w *Writer) Close() error {
	if err := w.flush(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}
