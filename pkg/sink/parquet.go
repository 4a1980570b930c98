package sink

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	pqcompress "github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/mongobridge/pkg/compression"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

const defaultParquetBatch = 10000

type parquetWriter struct {
	schema    *arrow.Schema
	builder   *array.RecordBuilder
	fw        *pqarrow.FileWriter
	batchSize int
	pending   int
}

func newParquetWriter(w io.Writer, cols []tabular.ColumnSchema, opts Options) (RowWriter, error) {
	codec, err := parquetCodec(opts.Compression)
	if err != nil {
		return nil, err
	}
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	pool := memory.NewGoAllocator()
	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(pool))

	// The file writer closes an io.Closer sink; the Sink owns the file.
	fw, err := pqarrow.NewFileWriter(schema, struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create parquet writer")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultParquetBatch
	}
	return &parquetWriter{
		schema:    schema,
		builder:   array.NewRecordBuilder(pool, schema),
		fw:        fw,
		batchSize: batch,
	}, nil
}

func (p *parquetWriter) WriteRow(values []tabular.Value) error {
	for i, v := range values {
		if err := appendValue(p.builder.Field(i), v); err != nil {
			return errors.ForColumn(p.schema.Field(i).Name, err)
		}
	}
	p.pending++
	if p.pending >= p.batchSize {
		return p.flush()
	}
	return nil
}

func (p *parquetWriter) flush() error {
	if p.pending == 0 {
		return nil
	}
	rec := p.builder.NewRecord()
	defer rec.Release()
	p.pending = 0
	return p.fw.WriteBuffered(rec)
}

func (p *parquetWriter) Close() error {
	defer p.builder.Release()
	if err := p.flush(); err != nil {
		return err
	}
	return p.fw.Close()
}

func arrowType(t tabular.DataType) arrow.DataType {
	switch {
	case t.IsInteger():
		return arrow.PrimitiveTypes.Int64
	case t.IsFloat() || t == tabular.TypeCurrency:
		return arrow.PrimitiveTypes.Float64
	case t == tabular.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case t.IsDate():
		return arrow.FixedWidthTypes.Timestamp_us
	case t.IsBinary():
		return arrow.BinaryTypes.Binary
	}
	return arrow.BinaryTypes.String
}

func appendValue(b array.Builder, v tabular.Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}
	switch ab := b.(type) {
	case *array.Int64Builder:
		n, ok := v.Int64()
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "value %q is not an integer", v.Text())
		}
		ab.Append(n)
	case *array.Float64Builder:
		f, ok := v.Float64()
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "value %q is not a number", v.Text())
		}
		ab.Append(f)
	case *array.BooleanBuilder:
		bv, ok := v.BoolValue()
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "value %q is not a boolean", v.Text())
		}
		ab.Append(bv)
	case *array.TimestampBuilder:
		tm, ok := v.TimeValue()
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "value %q is not a date", v.Text())
		}
		ab.Append(arrow.Timestamp(tm.UnixMicro()))
	case *array.BinaryBuilder:
		raw, ok := v.BytesValue()
		if !ok {
			raw = []byte(v.Text())
		}
		ab.Append(raw)
	case *array.StringBuilder:
		ab.Append(v.Text())
	default:
		return errors.Newf(errors.ErrorTypeInternal, "unsupported builder %T", b)
	}
	return nil
}

func parquetCodec(a compression.Algorithm) (pqcompress.Compression, error) {
	switch a {
	case "", compression.Snappy:
		return pqcompress.Codecs.Snappy, nil
	case compression.None:
		return pqcompress.Codecs.Uncompressed, nil
	case compression.Gzip:
		return pqcompress.Codecs.Gzip, nil
	case compression.Zstd:
		return pqcompress.Codecs.Zstd, nil
	case compression.LZ4:
		return pqcompress.Codecs.Lz4Raw, nil
	}
	return pqcompress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "parquet does not support %s compression", string(a))
}
