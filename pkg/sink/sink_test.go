package sink

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mongobridge/pkg/compression"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

func columns() []tabular.ColumnSchema {
	return []tabular.ColumnSchema{
		{ID: 1, Name: "name", Type: tabular.TypeWString, Length: 5},
		{ID: 2, Name: "qty", Type: tabular.TypeI4},
		{ID: 3, Name: "at", Type: tabular.TypeDBTimestamp},
	}
}

func writeRow(t *testing.T, s *Sink, name string, qty int64) {
	t.Helper()
	require.NoError(t, s.AddRow())
	require.NoError(t, s.SetValue(0, tabular.String(tabular.TypeWString, name)))
	require.NoError(t, s.SetValue(1, tabular.Int(tabular.TypeI4, qty)))
}

func TestCSVSinkStagesRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := newCSVWriter(&buf, columns(), Options{})
	require.NoError(t, err)
	s := New(columns(), w)

	writeRow(t, s, "a", 1)
	assert.Equal(t, int64(0), s.Rows(), "open row is not written yet")

	writeRow(t, s, "b", 2)
	require.NoError(t, s.RemoveRow())

	writeRow(t, s, "c", 3)
	require.NoError(t, s.SetNull(1))
	require.NoError(t, s.Close())

	assert.Equal(t, int64(2), s.Rows())
	assert.Equal(t, "name,qty,at\na,1,\nc,,\n", buf.String())

	assert.Error(t, s.AddRow())
}

func TestSinkTruncationSignal(t *testing.T) {
	var buf bytes.Buffer
	w, err := newCSVWriter(&buf, columns(), Options{})
	require.NoError(t, err)
	s := New(columns(), w)

	require.NoError(t, s.AddRow())
	err = s.SetValue(0, tabular.String(tabular.TypeWString, "toolong"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncation))
}

func TestSinkRequiresOpenRow(t *testing.T) {
	w, err := newCSVWriter(io.Discard, columns(), Options{})
	require.NoError(t, err)
	s := New(columns(), w)
	assert.Error(t, s.SetValue(0, tabular.String(tabular.TypeWString, "x")))
	assert.Error(t, s.RemoveRow())
	require.NoError(t, s.AddRow())
	assert.Error(t, s.SetNull(7))
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	w, err := newJSONLWriter(&buf, columns(), Options{})
	require.NoError(t, err)
	s := New(columns(), w)

	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	writeRow(t, s, "a", 1)
	require.NoError(t, s.SetValue(2, tabular.Time(tabular.TypeDBTimestamp, when)))
	require.NoError(t, s.Close())

	line := strings.TrimSpace(buf.String())
	assert.Equal(t, `{"name":"a","qty":1,"at":"2020-01-02T03:04:05Z"}`, line)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, float64(1), decoded["qty"])
}

func TestCreateCompressedCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "orders.csv.gz")
	s, err := Create(path, "csv", columns(), Options{Compression: compression.Gzip, Level: compression.Default})
	require.NoError(t, err)
	writeRow(t, s, "a", 1)
	writeRow(t, s, "b", 2)
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := compression.NewReader(f, compression.FromPath(path))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "name,qty,at\na,1,\nb,2,\n", string(data))
}

func TestCreateParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.parquet")
	s, err := Create(path, "parquet", columns(), Options{BatchSize: 2})
	require.NoError(t, err)

	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, n := range []string{"a", "b", "c"} {
		writeRow(t, s, n, int64(i))
		require.NoError(t, s.SetValue(2, tabular.Time(tabular.TypeDBTimestamp, when)))
	}
	require.NoError(t, s.Close())

	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer rdr.Close()
	assert.Equal(t, int64(3), rdr.NumRows())
	assert.Equal(t, 3, rdr.MetaData().Schema.NumColumns())
}

func TestParquetRejectsUnsupportedCodec(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "x.parquet"), "parquet", columns(), Options{Compression: compression.S2})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"csv", "jsonl", "parquet"}, Formats())

	f, err := Lookup("CSV")
	require.NoError(t, err)
	assert.Equal(t, ".csv", f.Extension)

	_, err = Lookup("xml")
	assert.Error(t, err)

	assert.Error(t, Register(Format{Name: "csv", New: newCSVWriter}))
}

func TestCSVReader(t *testing.T) {
	in := "QTY,name,extra\n5,widget,x\n,gadget,y\n"
	cols := []tabular.ColumnSchema{
		{Name: "name", Type: tabular.TypeWString},
		{Name: "qty", Type: tabular.TypeI4},
		{Name: "missing", Type: tabular.TypeR8},
	}
	r := NewCSVReader(strings.NewReader(in), cols)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "widget", row[0].Text())
	n, ok := row[1].Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)
	assert.True(t, row[2].IsNull())

	row, err = r.Next()
	require.NoError(t, err)
	assert.True(t, row[1].IsNull())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCSVReaderBadValue(t *testing.T) {
	r := NewCSVReader(strings.NewReader("qty\nabc\n"), []tabular.ColumnSchema{{Name: "qty", Type: tabular.TypeI4}})
	_, err := r.Next()
	require.Error(t, err)
	col, ok := errors.Column(err)
	assert.True(t, ok)
	assert.Equal(t, "qty", col)
}

func TestCSVReaderOutOfRangeInteger(t *testing.T) {
	r := NewCSVReader(strings.NewReader("qty\n1099511627776\n"), []tabular.ColumnSchema{{Name: "qty", Type: tabular.TypeI4}})
	_, err := r.Next()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	col, ok := errors.Column(err)
	assert.True(t, ok)
	assert.Equal(t, "qty", col)
}

func TestHeader(t *testing.T) {
	h, err := Header(bufio.NewReader(strings.NewReader("a,b\n1,2\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, h)
}
