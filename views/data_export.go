package views

import (
	"bufio"
	"encoding/csv"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// CSVWriter is a concurrency-safe, buffered CSV writer for the recording
// stage. Rows are encoded into a bufio.Writer under a short critical
// section; the recording controller flushes periodically so the write path
// never blocks on I/O.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64
}

// NewCSVWriter creates path and writes the CSV header row when asked.
func NewCSVWriter(path string, bufSizeBytes int, writeHeader bool, header []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "csv create %s", path)
	}

	if bufSizeBytes <= 0 {
		bufSizeBytes = 64 * 1024
	}

	bw := bufio.NewWriterSize(f, bufSizeBytes)
	cw := csv.NewWriter(bw)

	w := &CSVWriter{
		path: path,
		file: f,
		buf:  bw,
		csv:  cw,
	}

	if writeHeader && len(header) > 0 {
		if err := cw.Write(header); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "csv write header")
		}
	}

	return w, nil
}

// WriteRow appends a single CSV row. Thread-safe. Encoding errors are
// buffered by encoding/csv and surface on the next Flush.
func (w *CSVWriter) WriteRow(row []string) {
	w.mu.Lock()
	_ = w.csv.Write(row)
	w.rows++
	w.mu.Unlock()
}

// Flush pushes buffered rows to the OS.
func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *CSVWriter) flushLocked() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return errors.Wrapf(err, "csv encode %s", w.path)
	}
	return errors.Wrapf(w.buf.Flush(), "csv flush %s", w.path)
}

// Close flushes remaining data and closes the file. Further calls are no-ops.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	ferr := w.flushLocked()
	cerr := w.file.Close()
	w.file = nil
	if ferr != nil {
		return ferr
	}
	return errors.Wrapf(cerr, "csv close %s", w.path)
}

// Rows returns the number of data rows written (excludes header).
func (w *CSVWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Path returns the file the writer appends to.
func (w *CSVWriter) Path() string {
	return w.path
}
