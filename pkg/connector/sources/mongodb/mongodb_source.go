// Package mongodb is the source connector that turns a collection into
// tabular rows: it infers the schema, builds the predicate and drives the
// extractor over the bound buffers.
package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/condition"
	"github.com/ajitpratap0/mongobridge/pkg/connector/base"
	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/extract"
	"github.com/ajitpratap0/mongobridge/pkg/query"
	"github.com/ajitpratap0/mongobridge/pkg/schema"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// Options configure a Source.
type Options struct {
	Sample schema.SampleOptions
	Query  query.Options
	// Parser interprets condition boundaries. Nil uses the local wall clock.
	Parser *condition.Parser
	// Customize runs after every inference, before the metadata is returned.
	// Column dispositions from configuration are applied here.
	Customize func(meta *tabular.Metadata) error
}

// Source implements core.Source over one collection.
type Source struct {
	*base.BaseConnector

	coll     core.Collection
	opts     Options
	inferrer *schema.Inferrer
	builder  *query.Builder

	meta        *tabular.Metadata
	output      tabular.Buffer
	errorOutput tabular.Buffer
	stats       extract.Stats
	dropped     []string
}

var _ core.Source = (*Source)(nil)

// NewSource creates a source reading coll.
func NewSource(coll core.Collection, opts Options) *Source {
	s := &Source{
		BaseConnector: base.NewBaseConnector("mongodb", core.ConnectorTypeSource, "1.0.0"),
		coll:          coll,
		opts:          opts,
		builder:       query.NewBuilder(opts.Parser),
	}
	s.inferrer = schema.NewInferrer(s.Logger())
	return s
}

// SetLogger replaces the connector and inference loggers.
func (s *Source) SetLogger(l *zap.Logger) {
	s.BaseConnector.SetLogger(l)
	s.inferrer = schema.NewInferrer(s.Logger())
}

// Discover infers the schema. Calling it again re-infers into the same
// metadata, so the error sentinels are kept.
func (s *Source) Discover(ctx context.Context) (*tabular.Metadata, error) {
	var res *schema.Result
	err := s.ExecuteWithRetry(ctx, "discover", func() error {
		var err error
		res, err = s.inferrer.Infer(ctx, s.coll, s.opts.Sample)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.meta == nil {
		s.meta = tabular.NewMetadata()
	}
	res.Apply(s.meta)
	s.dropped = res.Dropped
	if s.opts.Customize != nil {
		if err := s.opts.Customize(s.meta); err != nil {
			return nil, err
		}
	}
	s.Logger().Info("schema discovered",
		zap.String("collection", s.coll.Name()),
		zap.Int("columns", len(res.Columns)),
		zap.Strings("dropped", res.Dropped),
		zap.Int("sampled", res.Sampled))
	return s.meta, nil
}

// Dropped returns the fields the last Discover left out because they were
// never non-null.
func (s *Source) Dropped() []string { return s.dropped }

// PreExecute binds meta to the host's buffers. errorOutput may be nil when no
// column redirects.
func (s *Source) PreExecute(meta *tabular.Metadata, output, errorOutput tabular.Buffer) error {
	if meta == nil || output == nil {
		return errors.New(errors.ErrorTypeConfig, "metadata and output buffer are required")
	}
	s.meta = meta
	s.output = output
	s.errorOutput = errorOutput
	return nil
}

// Filter returns the predicate the next PrimeOutput will run.
func (s *Source) Filter() (bson.D, error) {
	if s.meta == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "schema has not been discovered")
	}
	return s.builder.Resolve(s.opts.Query, s.meta.Lookup)
}

// PrimeOutput runs the predicate and streams every match into the buffers.
func (s *Source) PrimeOutput(ctx context.Context) error {
	if s.output == nil {
		return errors.New(errors.ErrorTypeConfig, "PreExecute must be called before PrimeOutput")
	}
	filter, err := s.Filter()
	if err != nil {
		return err
	}

	var cur core.Cursor
	err = s.ExecuteWithRetry(ctx, "find", func() error {
		var err error
		cur, err = s.coll.Find(ctx, filter, core.FindOptions{})
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to query collection").
				WithDetail(errors.DetailCollection, s.coll.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}

	ex, err := extract.New(s.meta, s.output, s.errorOutput,
		extract.WithLogger(s.Logger()),
		extract.WithCollection(s.coll.Name()),
		extract.WithProgress(s.Progress().IncrementProcessed))
	if err != nil {
		_ = cur.Close(ctx)
		return err
	}

	s.Progress().Reset()
	s.stats, err = ex.Run(ctx, cur)
	s.Progress().Finish()
	return err
}

// Stats returns the counts of the last PrimeOutput.
func (s *Source) Stats() extract.Stats { return s.stats }
