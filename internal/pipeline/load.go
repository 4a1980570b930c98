package pipeline

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/compression"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/sink"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"

	dstmongo "github.com/ajitpratap0/mongobridge/pkg/connector/destinations/mongodb"
)

// LoadResult summarizes a load run.
type LoadResult struct {
	Collection string
	Input      string
	Columns    []string
	Inserted   int64
}

// Load reads the configured CSV input and inserts one document per row. When
// no columns are declared, every header column is loaded as text.
func (p *Pipeline) Load(ctx context.Context) (*LoadResult, error) {
	dc := p.cfg.Destination
	ctx, l, done := p.begin(ctx, "load", dc.Collection)
	defer done()

	cols, err := dc.ColumnSchemas()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		if cols, err = headerColumns(dc.Input); err != nil {
			return nil, err
		}
	}

	r, closeInput, err := openInput(dc.Input)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	dest := dstmongo.NewDestination(p.store.Collection(dc.Collection), dc.BatchSize)
	dest.SetLogger(l)
	if err := dest.PreExecute(cols); err != nil {
		return nil, err
	}

	res := &LoadResult{Collection: dc.Collection, Input: dc.Input, Columns: columnNames(cols)}
	err = dest.ProcessInput(ctx, sink.NewCSVReader(r, cols))
	res.Inserted = dest.Inserted()
	if err != nil {
		return res, err
	}
	l.Info("load complete", zap.String("input", dc.Input), zap.Int64("inserted", res.Inserted))
	return res, nil
}

// openInput opens path, decompressing by its extension.
func openInput(path string) (io.Reader, func(), error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").WithDetail("path", path)
	}
	r, err := compression.NewReader(f, compression.FromPath(path))
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return r, func() {
		_ = r.Close()
		_ = f.Close()
	}, nil
}

func headerColumns(path string) ([]tabular.ColumnSchema, error) {
	r, closeInput, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	header, err := sink.Header(r)
	if err != nil {
		return nil, err
	}
	cols := make([]tabular.ColumnSchema, len(header))
	for i, h := range header {
		cols[i] = tabular.ColumnSchema{ID: i + 1, Name: h, Type: tabular.TypeWString}
	}
	return cols, nil
}
