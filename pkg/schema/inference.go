// Package schema derives a tabular schema from a document collection and keeps
// pinned, versioned copies of it.
package schema

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
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

// DefaultSampleSize is the number of documents sampled when none is configured.
const DefaultSampleSize = 1000

const idField = "_id"

// SampleOptions bounds the sample inference reads field names from.
type SampleOptions struct {
	Size   int64 `yaml:"sample_size" mapstructure:"sample_size"`
	Offset int64 `yaml:"sample_offset" mapstructure:"sample_offset"`
}

// Result is an inferred schema: output columns in first-seen field order and
// their error-schema mirror.
type Result struct {
	Columns      []tabular.ColumnSchema
	ErrorColumns []tabular.ColumnSchema
	// Dropped lists sampled fields that are null or absent in every document.
	Dropped []string
	Sampled int
}

// Apply installs the result into meta, replacing previously inferred columns.
func (r *Result) Apply(meta *tabular.Metadata) {
	meta.ReplaceColumns(r.Columns)
}

// Inferrer samples collections to derive their schema.
type Inferrer struct {
	logger *zap.Logger
}

// NewInferrer creates an inferrer. A nil logger uses the global one.
func NewInferrer(l *zap.Logger) *Inferrer {
	if l == nil {
		l = logger.Component("schema")
	}
	return &Inferrer{logger: l}
}

// Infer samples coll and types every top-level field by a representative
// non-null value found anywhere in the collection.
func (i *Inferrer) Infer(ctx context.Context, coll core.Collection, opts SampleOptions) (res *Result, err error) {
	timer := metrics.NewTimer("infer")
	ctx, span := observability.StartSpan(ctx, "schema.infer", attribute.String("collection", coll.Name()))
	defer func() {
		observability.EndSpan(span, err)
		metrics.InferenceDuration.WithLabelValues(coll.Name()).Observe(timer.Stop().Seconds())
	}()

	count, err := coll.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to count documents")
	}
	if count == 0 {
		return nil, errors.EmptyCollection(coll.Name())
	}

	fields, sampled, err := i.sampleFields(ctx, coll, opts)
	if err != nil {
		return nil, err
	}

	res = &Result{Sampled: sampled}
	for _, name := range fields {
		value, ok, err := i.representative(ctx, coll, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			i.logger.Debug("dropping field with no non-null value",
				zap.String("collection", coll.Name()),
				zap.String("field", name))
			res.Dropped = append(res.Dropped, name)
			continue
		}
		res.Columns = append(res.Columns, typemap.InferColumn(name, value))
	}
	res.ErrorColumns = Mirror(res.Columns)

	i.logger.Info("schema inferred",
		zap.String("collection", coll.Name()),
		zap.Int("sampled", sampled),
		zap.Int("columns", len(res.Columns)),
		zap.Int("dropped", len(res.Dropped)))
	return res, nil
}

// sampleFields returns the distinct top-level field names of the sample in
// first-seen order, without _id.
func (i *Inferrer) sampleFields(ctx context.Context, coll core.Collection, opts SampleOptions) ([]string, int, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultSampleSize
	}
	cur, err := coll.Find(ctx, bson.D{}, core.FindOptions{Limit: size, Skip: opts.Offset})
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrorTypeQuery, "failed to sample documents")
	}
	defer func() { _ = cur.Close(ctx) }()

	seen := make(map[string]struct{})
	var fields []string
	sampled := 0
	for cur.Next(ctx) {
		sampled++
		elems, err := cur.Current().Elements()
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrorTypeData, "malformed document in sample")
		}
		for _, e := range elems {
			key := e.Key()
			if key == idField {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			fields = append(fields, key)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrorTypeQuery, "sample cursor failed")
	}
	return fields, sampled, nil
}

func (i *Inferrer) representative(ctx context.Context, coll core.Collection, field string) (bson.RawValue, bool, error) {
	filter := bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}}}
	doc, err := coll.FindOne(ctx, filter)
	if stderrors.Is(err, core.ErrNoDocuments) {
		return bson.RawValue{}, false, nil
	}
	if err != nil {
		return bson.RawValue{}, false, errors.Wrap(err, errors.ErrorTypeQuery, "failed to find a representative value").
			WithDetail(errors.DetailColumn, field)
	}
	v := doc.Lookup(field)
	if typemap.IsMissing(v) {
		return bson.RawValue{}, false, nil
	}
	return v, true, nil
}

// Mirror copies cols into error-schema columns, without dispositions.
func Mirror(cols []tabular.ColumnSchema) []tabular.ColumnSchema {
	out := make([]tabular.ColumnSchema, len(cols))
	for i, c := range cols {
		c.ErrorDisposition = ""
		c.TruncationDisposition = ""
		out[i] = c
	}
	return out
}
