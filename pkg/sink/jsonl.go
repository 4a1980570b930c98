package sink

import (
	"bufio"
	"io"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// jsonlWriter writes one object per line with keys in column order.
type jsonlWriter struct {
	w    *bufio.Writer
	keys [][]byte
}

func newJSONLWriter(w io.Writer, cols []tabular.ColumnSchema, _ Options) (RowWriter, error) {
	keys := make([][]byte, len(cols))
	for i, c := range cols {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return &jsonlWriter{w: bufio.NewWriter(w), keys: keys}, nil
}

func (j *jsonlWriter) WriteRow(values []tabular.Value) error {
	_ = j.w.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			_ = j.w.WriteByte(',')
		}
		_, _ = j.w.Write(j.keys[i])
		_ = j.w.WriteByte(':')
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return err
		}
		if _, err := j.w.Write(b); err != nil {
			return err
		}
	}
	_, err := j.w.WriteString("}\n")
	return err
}

func (j *jsonlWriter) Close() error { return j.w.Flush() }
