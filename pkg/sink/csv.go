package sink

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

type csvWriter struct {
	w      *csv.Writer
	record []string
}

func newCSVWriter(w io.Writer, cols []tabular.ColumnSchema, _ Options) (RowWriter, error) {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv header")
	}
	return &csvWriter{w: cw, record: make([]string, len(cols))}, nil
}

func (c *csvWriter) WriteRow(values []tabular.Value) error {
	for i, v := range values {
		c.record[i] = v.Text()
	}
	return c.w.Write(c.record)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

// CSVReader reads rows for a load. The header row selects which file column
// feeds each declared column; declared columns missing from the header read
// as null.
type CSVReader struct {
	r       *csv.Reader
	cols    []tabular.ColumnSchema
	source  []int
	line    int
	initErr error
}

// NewCSVReader reads the header from r and maps it onto cols by name,
// ignoring case.
func NewCSVReader(r io.Reader, cols []tabular.ColumnSchema) *CSVReader {
	cr := &CSVReader{r: csv.NewReader(r), cols: cols, source: make([]int, len(cols))}
	cr.r.ReuseRecord = true
	header, err := cr.r.Read()
	if err != nil {
		cr.initErr = errors.Wrap(err, errors.ErrorTypeFile, "failed to read csv header")
		return cr
	}
	cr.line = 1
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for i, c := range cols {
		idx, ok := pos[strings.ToLower(c.Name)]
		if !ok {
			idx = -1
		}
		cr.source[i] = idx
	}
	return cr
}

// Header reads just the header of r, for callers that build the column list
// from the file.
func Header(r io.Reader) ([]string, error) {
	h, err := csv.NewReader(r).Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read csv header")
	}
	return h, nil
}

// Next implements core.RowReader.
func (c *CSVReader) Next() ([]tabular.Value, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}
	rec, err := c.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read csv row")
	}
	c.line++

	row := make([]tabular.Value, len(c.cols))
	for i, col := range c.cols {
		idx := c.source[i]
		if idx < 0 || idx >= len(rec) {
			row[i] = tabular.Null(col.Type)
			continue
		}
		v, err := tabular.ParseText(rec[idx], col.Type)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse csv value").
				WithDetail(errors.DetailColumn, col.Name).
				WithDetail("line", c.line)
		}
		row[i] = v
	}
	return row, nil
}
