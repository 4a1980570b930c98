// Package pipeline runs the jobs the CLI exposes: listing collections,
// discovering and pinning a collection's schema, extracting a collection into
// files, and loading a file into a collection.
//
// # Basic Usage
//
//	client, err := mongodb.Connect(ctx, cfg.Connection, &cfg.Retry, log)
//	...
//	p := pipeline.New(cfg, pipeline.FromClient(client), log)
//	res, err := p.Extract(ctx)
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/condition"
	"github.com/ajitpratap0/mongobridge/pkg/config"
	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
	"github.com/ajitpratap0/mongobridge/pkg/metrics"
	"github.com/ajitpratap0/mongobridge/pkg/mongodb"
	"github.com/ajitpratap0/mongobridge/pkg/query"
	"github.com/ajitpratap0/mongobridge/pkg/schema"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"

	srcmongo "github.com/ajitpratap0/mongobridge/pkg/connector/sources/mongodb"
)

// Store is the database a pipeline works against.
type Store interface {
	Collection(name string) core.Collection
	CollectionNames(ctx context.Context) ([]string, error)
}

type clientStore struct{ c *mongodb.Client }

func (s clientStore) Collection(name string) core.Collection { return s.c.Collection(name) }

func (s clientStore) CollectionNames(ctx context.Context) ([]string, error) {
	return s.c.CollectionNames(ctx)
}

// FromClient adapts a connected client to a Store.
func FromClient(c *mongodb.Client) Store { return clientStore{c: c} }

// Pipeline runs jobs described by one configuration.
type Pipeline struct {
	cfg    *config.Config
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a pipeline. A nil logger uses the global one.
func New(cfg *config.Config, store Store, l *zap.Logger) *Pipeline {
	if l == nil {
		l = logger.Component("pipeline")
	}
	return &Pipeline{cfg: cfg, store: store, logger: l, now: time.Now}
}

// Collections lists the user collections of the database.
func (p *Pipeline) Collections(ctx context.Context) ([]string, error) {
	return p.store.CollectionNames(ctx)
}

// begin tags ctx with a fresh run ID and counts the run as active until the
// returned func is called.
func (p *Pipeline) begin(ctx context.Context, kind, collection string) (context.Context, *zap.Logger, func()) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.CollectionKey, collection)
	l := p.logger.With(zap.String("run_id", runID), zap.String("collection", collection), zap.String("job", kind))

	metrics.ActiveRuns.WithLabelValues(kind).Inc()
	timer := metrics.NewTimer(kind)
	return ctx, l, func() {
		metrics.ActiveRuns.WithLabelValues(kind).Dec()
		l.Info("run finished", zap.Duration("duration", timer.Stop()))
	}
}

func (p *Pipeline) newSource(l *zap.Logger) (*srcmongo.Source, error) {
	sc := p.cfg.Source
	loc, err := sc.Location()
	if err != nil {
		return nil, err
	}
	s := srcmongo.NewSource(p.store.Collection(sc.Collection), srcmongo.Options{
		Sample: schema.SampleOptions{Size: int64(sc.SampleSize), Offset: sc.SampleOffset},
		Query: query.Options{
			Query: sc.Query,
			Field: sc.ConditionField,
			From:  sc.ConditionFrom,
			To:    sc.ConditionTo,
		},
		Parser:    &condition.Parser{Now: p.now, Location: loc},
		Customize: sc.ApplyDispositions,
	})
	s.SetLogger(l)
	retry := p.cfg.Retry
	s.SetRetryPolicy(&retry)
	return s, nil
}

func (p *Pipeline) loadRegistry(l *zap.Logger) (*schema.Registry, error) {
	if p.cfg.Source.SchemaFile == "" {
		return nil, nil
	}
	return schema.LoadRegistry(p.cfg.Source.SchemaFile, l)
}

// pinned returns the latest pinned metadata of the source collection, if any.
func (p *Pipeline) pinned(reg *schema.Registry) (*schema.Version, bool) {
	if reg == nil {
		return nil, false
	}
	return reg.Latest(p.cfg.Source.Collection)
}

func columnNames(cols []tabular.ColumnSchema) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
