// Package sink provides file-backed row buffers that the extractor writes
// into. A Sink stages one row at a time; the staged row reaches the file only
// when the next row is added or the rowset ends, so a removed row never
// appears in the output.
package sink

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/mongobridge/pkg/compression"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// RowWriter encodes committed rows in one file format.
type RowWriter interface {
	WriteRow(values []tabular.Value) error
	// Close flushes buffered output. It does not close the underlying writer.
	Close() error
}

// Options tune a format writer.
type Options struct {
	Compression compression.Algorithm
	Level       compression.Level
	BatchSize   int
}

// Sink is a tabular.Buffer that writes committed rows through a RowWriter.
type Sink struct {
	columns []tabular.ColumnSchema
	writer  RowWriter
	closers []io.Closer

	open    []tabular.Value
	hasOpen bool
	ended   bool
	rows    int64
}

var _ tabular.Buffer = (*Sink)(nil)

// New wraps an already constructed RowWriter. closers run after the writer
// is closed, in order.
func New(cols []tabular.ColumnSchema, w RowWriter, closers ...io.Closer) *Sink {
	return &Sink{columns: cols, writer: w, closers: closers}
}

// Create opens path for writing in the named format. Formats that compress
// internally receive opts.Compression; the others are wrapped in a
// compressed stream.
func Create(path, format string, cols []tabular.ColumnSchema, opts Options) (*Sink, error) {
	f, err := Lookup(format)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
				WithDetail("path", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", path)
	}

	var out io.Writer = file
	closers := []io.Closer{}
	if !f.CompressesInternally {
		cw, err := compression.NewWriter(file, opts.Compression, opts.Level)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		out = cw
		closers = append(closers, cw)
	}
	closers = append(closers, file)

	w, err := f.New(out, cols, opts)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}
	return New(cols, w, closers...), nil
}

// Columns implements tabular.Buffer.
func (s *Sink) Columns() []tabular.ColumnSchema { return s.columns }

// AddRow implements tabular.Buffer. The previously open row is written.
func (s *Sink) AddRow() error {
	if s.ended {
		return errors.New(errors.ErrorTypeInternal, "row added after end of rowset")
	}
	if err := s.commit(); err != nil {
		return err
	}
	s.open = make([]tabular.Value, len(s.columns))
	for i, c := range s.columns {
		s.open[i] = tabular.Null(c.Type)
	}
	s.hasOpen = true
	return nil
}

// SetValue implements tabular.Buffer.
func (s *Sink) SetValue(index int, v tabular.Value) error {
	if err := s.check(index); err != nil {
		return err
	}
	if err := s.columns[index].Fit(v); err != nil {
		return err
	}
	s.open[index] = v
	return nil
}

// SetNull implements tabular.Buffer.
func (s *Sink) SetNull(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.open[index] = tabular.Null(s.columns[index].Type)
	return nil
}

// RemoveRow implements tabular.Buffer.
func (s *Sink) RemoveRow() error {
	if !s.hasOpen {
		return errors.New(errors.ErrorTypeInternal, "no open row to remove")
	}
	s.open = nil
	s.hasOpen = false
	return nil
}

// SetEndOfRowset implements tabular.Buffer.
func (s *Sink) SetEndOfRowset() error {
	if s.ended {
		return nil
	}
	s.ended = true
	return s.commit()
}

// Rows returns the number of rows written.
func (s *Sink) Rows() int64 { return s.rows }

// Close ends the rowset if needed and releases the file.
func (s *Sink) Close() error {
	first := s.SetEndOfRowset()
	if err := s.writer.Close(); err != nil && first == nil {
		first = errors.Wrap(err, errors.ErrorTypeFile, "failed to flush output")
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = errors.Wrap(err, errors.ErrorTypeFile, "failed to close output")
		}
	}
	s.closers = nil
	return first
}

func (s *Sink) commit() error {
	if !s.hasOpen {
		return nil
	}
	row := s.open
	s.open = nil
	s.hasOpen = false
	if err := s.writer.WriteRow(row); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row")
	}
	s.rows++
	return nil
}

func (s *Sink) check(index int) error {
	if !s.hasOpen {
		return errors.New(errors.ErrorTypeInternal, "no open row")
	}
	if index < 0 || index >= len(s.columns) {
		return errors.Newf(errors.ErrorTypeInternal, "column index %d out of range", index)
	}
	return nil
}
