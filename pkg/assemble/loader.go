package assemble

import (
	"context"
	stderrors "errors"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
	"github.com/ajitpratap0/mongobridge/pkg/metrics"
	"github.com/ajitpratap0/mongobridge/pkg/observability"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
	"github.com/ajitpratap0/mongobridge/pkg/typemap"
)

// DefaultBatchSize is the number of documents per insert when none is configured.
const DefaultBatchSize = 1000

// Loader turns rows into documents and inserts them in batches.
type Loader struct {
	coll      core.Collection
	template  *Template
	batchSize int
	logger    *zap.Logger

	batch    []interface{}
	inserted int64
	batches  int64
}

// NewLoader builds the template for cols. Every column kind must have a
// document representation.
func NewLoader(coll core.Collection, cols []ColumnInfo, batchSize int, l *zap.Logger) (*Loader, error) {
	for _, c := range cols {
		if !typemap.Supported(c.Type) {
			return nil, errors.UnsupportedType(c.Type.String()).WithDetail(errors.DetailColumn, c.Name)
		}
	}
	tmpl, err := BuildTemplate(cols)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if l == nil {
		l = logger.Component("assemble")
	}
	return &Loader{
		coll:      coll,
		template:  tmpl,
		batchSize: batchSize,
		logger:    l,
		batch:     make([]interface{}, 0, batchSize),
	}, nil
}

// Document builds the document for row without queueing it.
func (l *Loader) Document(row []tabular.Value) (interface{}, error) {
	doc := l.template.NewDocument()
	for _, c := range l.template.Columns() {
		if c.Index < 0 || c.Index >= len(row) {
			return nil, errors.Newf(errors.ErrorTypeData, "row has no value for column %q", c.Name).
				WithDetail(errors.DetailColumn, c.Name)
		}
		v, err := typemap.ToDocumentValue(row[c.Index], c.Type)
		if err != nil {
			return nil, errors.ForColumn(c.Name, err)
		}
		if doc, err = InsertValue(doc, c, v); err != nil {
			return nil, errors.ForColumn(c.Name, err)
		}
	}
	return doc, nil
}

// Write queues the document for row, inserting the batch once it is full.
func (l *Loader) Write(ctx context.Context, row []tabular.Value) error {
	doc, err := l.Document(row)
	if err != nil {
		return err
	}
	l.batch = append(l.batch, doc)
	if len(l.batch) >= l.batchSize {
		return l.Flush(ctx)
	}
	return nil
}

// Flush inserts the queued documents, if any.
func (l *Loader) Flush(ctx context.Context) error {
	if len(l.batch) == 0 {
		return nil
	}
	n := len(l.batch)
	if err := l.coll.InsertMany(ctx, l.batch); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to insert documents").
			WithDetail(errors.DetailCollection, l.coll.Name()).
			WithDetail("batch_size", n)
	}
	l.inserted += int64(n)
	l.batches++
	metrics.DocumentsInserted.WithLabelValues(l.coll.Name()).Add(float64(n))
	metrics.InsertBatches.WithLabelValues(l.coll.Name()).Observe(float64(n))
	l.logger.Debug("batch inserted", zap.String("collection", l.coll.Name()), zap.Int("documents", n))
	l.batch = make([]interface{}, 0, l.batchSize)
	return nil
}

// Inserted returns the number of documents inserted so far.
func (l *Loader) Inserted() int64 { return l.inserted }

// Batches returns the number of insert calls made so far.
func (l *Loader) Batches() int64 { return l.batches }

// Load drains rows into the collection and flushes the final partial batch.
func (l *Loader) Load(ctx context.Context, rows core.RowReader) (err error) {
	ctx, span := observability.StartSpan(ctx, "assemble.load", attribute.String("collection", l.coll.Name()))
	defer func() {
		span.SetAttributes(attribute.Int64("inserted", l.inserted))
		observability.EndSpan(span, err)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "load cancelled")
		}
		row, err := rows.Next()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to read input row")
		}
		if err := l.Write(ctx, row); err != nil {
			return err
		}
	}
	if err := l.Flush(ctx); err != nil {
		return err
	}
	l.logger.Info("load finished",
		zap.String("collection", l.coll.Name()),
		zap.Int64("inserted", l.inserted),
		zap.Int64("batches", l.batches))
	return nil
}
