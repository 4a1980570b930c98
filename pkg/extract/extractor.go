// Package extract turns documents into rows of a fixed tabular schema.
//
// Each document walks a small state machine: the row is opened (Building),
// every column is converted in schema order (Converting), and the row ends up
// Committed to the default buffer, Redirected to the error buffer, or Failed.
// A column failure is settled by that column's disposition.
package extract

import (
	"context"

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

// Phase is where a row is in its life cycle.
type Phase int

const (
	PhaseBuilding Phase = iota
	PhaseConverting
	PhaseCommitted
	PhaseRedirected
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseConverting:
		return "converting"
	case PhaseCommitted:
		return "committed"
	case PhaseRedirected:
		return "redirected"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// RowState is the state of the row being processed. Column is the index of the
// column being converted, or that failed.
type RowState struct {
	Phase  Phase
	Column int
}

// Stats counts the outcome of a run.
type Stats struct {
	Rows       int64
	Committed  int64
	Redirected int64
	Ignored    int64
	Warnings   int64
}

type binding struct {
	col      tabular.ColumnSchema
	out      int
	errorOut int
}

// Extractor writes documents into an output buffer and, for redirected rows,
// an error buffer.
type Extractor struct {
	collection  string
	bindings    []binding
	output      tabular.Buffer
	errorOutput tabular.Buffer
	errCodeIdx  int
	errColIdx   int
	logger      *zap.Logger
	onRow       func(int64)

	state RowState
	stats Stats
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCollection names the source collection in logs and metrics.
func WithCollection(name string) Option {
	return func(e *Extractor) { e.collection = name }
}

// WithProgress registers fn to be called with 1 after every processed document.
func WithProgress(fn func(int64)) Option {
	return func(e *Extractor) { e.onRow = fn }
}

// New binds meta to the buffers. errorOutput may be nil unless a column
// redirects rows.
func New(meta *tabular.Metadata, output, errorOutput tabular.Buffer, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		output:      output,
		errorOutput: errorOutput,
		logger:      logger.Component("extract"),
		errCodeIdx:  -1,
		errColIdx:   -1,
	}
	for _, opt := range opts {
		opt(e)
	}

	outIdx, err := tabular.ResolveIndexes(meta.Output, output)
	if err != nil {
		return nil, err
	}

	var errIdx tabular.IndexMap
	if errorOutput != nil {
		sentinels := []tabular.ColumnSchema{{Name: tabular.ErrorCodeColumn}, {Name: tabular.ErrorColumnColumn}}
		if errIdx, err = tabular.ResolveIndexes(append(sentinels, meta.Output...), errorOutput); err != nil {
			return nil, err
		}
		e.errCodeIdx = errIdx[tabular.ErrorCodeColumn]
		e.errColIdx = errIdx[tabular.ErrorColumnColumn]
	} else if meta.NeedsErrorOutput() {
		return nil, errors.New(errors.ErrorTypeConfig, "rows are redirected but no error output is attached")
	}

	e.bindings = make([]binding, len(meta.Output))
	for i, c := range meta.Output {
		b := binding{col: c, out: outIdx[c.Name], errorOut: -1}
		if errIdx != nil {
			b.errorOut = errIdx[c.Name]
		}
		e.bindings[i] = b
	}
	return e, nil
}

// State returns the state of the last processed row.
func (e *Extractor) State() RowState { return e.state }

// Stats returns the counts so far.
func (e *Extractor) Stats() Stats { return e.stats }

// Run processes every document of cur, in order, then ends both rowsets.
func (e *Extractor) Run(ctx context.Context, cur core.Cursor) (stats Stats, err error) {
	ctx, span := observability.StartSpan(ctx, "extract.run", attribute.String("collection", e.collection))
	defer func() {
		span.SetAttributes(
			attribute.Int64("rows", e.stats.Rows),
			attribute.Int64("redirected", e.stats.Redirected))
		observability.EndSpan(span, err)
	}()
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		if err := e.Process(cur.Current()); err != nil {
			return e.stats, err
		}
	}
	if err := cur.Err(); err != nil {
		return e.stats, errors.Wrap(err, errors.ErrorTypeQuery, "cursor failed")
	}
	if err := ctx.Err(); err != nil {
		return e.stats, errors.Wrap(err, errors.ErrorTypeInternal, "extraction cancelled")
	}

	if err := e.output.SetEndOfRowset(); err != nil {
		return e.stats, errors.Wrap(err, errors.ErrorTypeInternal, "failed to end output rowset")
	}
	if e.errorOutput != nil {
		if err := e.errorOutput.SetEndOfRowset(); err != nil {
			return e.stats, errors.Wrap(err, errors.ErrorTypeInternal, "failed to end error rowset")
		}
	}

	e.logger.Info("extraction finished",
		zap.String("collection", e.collection),
		zap.Int64("rows", e.stats.Rows),
		zap.Int64("committed", e.stats.Committed),
		zap.Int64("redirected", e.stats.Redirected),
		zap.Int64("ignored", e.stats.Ignored),
		zap.Int64("warnings", e.stats.Warnings))
	return e.stats, nil
}

// Process converts one document into a row. A returned error is fatal for the run.
func (e *Extractor) Process(doc bson.Raw) error {
	e.stats.Rows++
	if e.onRow != nil {
		defer e.onRow(1)
	}

	e.state = RowState{Phase: PhaseBuilding}
	if err := e.output.AddRow(); err != nil {
		return e.fail(errors.Wrap(err, errors.ErrorTypeInternal, "failed to add row"))
	}

	values := make([]tabular.Value, len(e.bindings))
	for i, b := range e.bindings {
		e.state = RowState{Phase: PhaseConverting, Column: i}

		raw := doc.Lookup(b.col.Name)
		if typemap.IsMissing(raw) {
			values[i] = tabular.Null(b.col.Type)
			if err := e.output.SetNull(b.out); err != nil {
				return e.fail(errors.ForColumn(b.col.Name, err))
			}
			continue
		}

		v, err := typemap.ToTabularValue(raw, b.col.Type)
		if err != nil {
			redirected, err := e.settle(i, values, tabular.ErrorCodeConversion, err)
			if err != nil || redirected {
				return err
			}
			values[i] = tabular.Null(b.col.Type)
			if err := e.output.SetNull(b.out); err != nil {
				return e.fail(errors.ForColumn(b.col.Name, err))
			}
			continue
		}

		if typemap.IsLossyText(raw, b.col.Type) {
			e.stats.Warnings++
			metrics.ConversionWarnings.WithLabelValues(b.col.Name).Inc()
			e.logger.Warn("non-string value converted to string",
				zap.String("column", b.col.Name),
				zap.String("bson_type", raw.Type.String()))
		}

		if err := e.output.SetValue(b.out, v); err != nil {
			if !errors.IsType(err, errors.ErrorTypeTruncation) {
				return e.fail(errors.ForColumn(b.col.Name, err))
			}
			redirected, err := e.settle(i, values, tabular.ErrorCodeTruncation, err)
			if err != nil || redirected {
				return err
			}
			v = typemap.Truncate(v, b.col.Length)
			if err := e.output.SetValue(b.out, v); err != nil {
				return e.fail(errors.ForColumn(b.col.Name, err))
			}
		}
		values[i] = v
	}

	e.state = RowState{Phase: PhaseCommitted, Column: len(e.bindings)}
	e.stats.Committed++
	metrics.RowsProcessed.WithLabelValues(e.collection, metrics.OutcomeCommitted).Inc()
	return nil
}

// settle applies the failing column's disposition. It reports whether the row
// was redirected; a non-nil error fails the run. Otherwise the failure is ignored.
func (e *Extractor) settle(i int, values []tabular.Value, code int64, cause error) (bool, error) {
	col := e.bindings[i].col
	disposition, kind := col.OnError(), "conversion"
	if code == tabular.ErrorCodeTruncation {
		disposition, kind = col.OnTruncation(), "truncation"
	}
	metrics.ColumnErrors.WithLabelValues(col.Name, kind, string(disposition)).Inc()

	switch disposition {
	case tabular.RedirectRow:
		if err := e.redirect(i, values, code); err != nil {
			return false, e.fail(err)
		}
		e.state = RowState{Phase: PhaseRedirected, Column: i}
		e.stats.Redirected++
		metrics.RowsProcessed.WithLabelValues(e.collection, metrics.OutcomeRedirected).Inc()
		e.logger.Debug("row redirected",
			zap.String("column", col.Name),
			zap.String("kind", kind),
			zap.Error(cause))
		return true, nil
	case tabular.Ignore:
		e.stats.Ignored++
		return false, nil
	}
	return false, e.fail(errors.ForColumn(col.Name, cause))
}

// redirect moves the row so far into the error buffer and drops it from the
// default buffer.
func (e *Extractor) redirect(failed int, values []tabular.Value, code int64) error {
	if err := e.errorOutput.AddRow(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to add error row")
	}
	for j := 0; j < failed; j++ {
		b := e.bindings[j]
		var err error
		if values[j].IsNull() {
			err = e.errorOutput.SetNull(b.errorOut)
		} else {
			err = e.errorOutput.SetValue(b.errorOut, values[j])
		}
		if err != nil {
			return errors.ForColumn(b.col.Name, err)
		}
	}
	if err := e.errorOutput.SetValue(e.errCodeIdx, tabular.Int(tabular.TypeI4, code)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to set error code")
	}
	colID := int64(e.bindings[failed].col.ID)
	if err := e.errorOutput.SetValue(e.errColIdx, tabular.Int(tabular.TypeI4, colID)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to set error column")
	}
	if err := e.output.RemoveRow(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to remove row")
	}
	return nil
}

func (e *Extractor) fail(err error) error {
	e.state.Phase = PhaseFailed
	metrics.RowsProcessed.WithLabelValues(e.collection, metrics.OutcomeFailed).Inc()
	return err
}
