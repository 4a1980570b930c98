package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/schema"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// DiscoverResult is a freshly inferred schema and, when a schema file is
// configured, how it compares with the pinned one.
type DiscoverResult struct {
	Collection string
	Metadata   *tabular.Metadata
	Dropped    []string
	// Changes lists drift from the previously pinned schema.
	Changes []schema.Change
	// Version is the pinned version after this run; zero without a schema file.
	Version int
	// Pinned is true when this run created a new pinned version.
	Pinned bool
}

// Discover infers the source collection's schema. With a schema file and
// pin set, the result is registered as the new pinned version when it
// differs from the latest one.
func (p *Pipeline) Discover(ctx context.Context, pin bool) (*DiscoverResult, error) {
	ctx, l, done := p.begin(ctx, "discover", p.cfg.Source.Collection)
	defer done()

	src, err := p.newSource(l)
	if err != nil {
		return nil, err
	}
	meta, err := src.Discover(ctx)
	if err != nil {
		return nil, err
	}
	res := &DiscoverResult{
		Collection: p.cfg.Source.Collection,
		Metadata:   meta,
		Dropped:    src.Dropped(),
	}

	reg, err := p.loadRegistry(l)
	if err != nil || reg == nil {
		return res, err
	}
	if latest, ok := p.pinned(reg); ok {
		res.Changes = schema.Diff(latest.Metadata.Output, meta.Output)
		res.Version = latest.Version
		for _, c := range res.Changes {
			l.Warn("schema drift", zap.String("change", c.String()))
		}
	}
	if !pin {
		return res, nil
	}

	v, created := reg.Register(res.Collection, meta)
	res.Version = v.Version
	res.Pinned = created
	if err := reg.Save(p.cfg.Source.SchemaFile); err != nil {
		return nil, err
	}
	return res, nil
}
