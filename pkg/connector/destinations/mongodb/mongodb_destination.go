// Package mongodb is the destination connector that assembles input rows into
// documents and inserts them into a collection.
package mongodb

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/assemble"
	"github.com/ajitpratap0/mongobridge/pkg/connector/base"
	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// Destination implements core.Destination over one collection.
type Destination struct {
	*base.BaseConnector

	coll      core.Collection
	batchSize int
	loader    *assemble.Loader
}

var _ core.Destination = (*Destination)(nil)

// NewDestination creates a destination inserting batchSize documents at a
// time. A non-positive batchSize uses assemble.DefaultBatchSize.
func NewDestination(coll core.Collection, batchSize int) *Destination {
	return &Destination{
		BaseConnector: base.NewBaseConnector("mongodb", core.ConnectorTypeDestination, "1.0.0"),
		coll:          coll,
		batchSize:     batchSize,
	}
}

// PreExecute builds the document template for the input columns. Column
// names are dotted paths into the document.
func (d *Destination) PreExecute(cols []tabular.ColumnSchema) error {
	if len(cols) == 0 {
		return errors.New(errors.ErrorTypeConfig, "destination has no input columns")
	}
	infos := make([]assemble.ColumnInfo, len(cols))
	for i, c := range cols {
		infos[i] = assemble.NewColumnInfo(c.Name, c.Type, i)
	}
	loader, err := assemble.NewLoader(d.coll, infos, d.batchSize, d.Logger())
	if err != nil {
		return err
	}
	d.loader = loader
	return nil
}

// ProcessInput inserts every row of rows.
func (d *Destination) ProcessInput(ctx context.Context, rows core.RowReader) error {
	if d.loader == nil {
		return errors.New(errors.ErrorTypeConfig, "PreExecute must be called before ProcessInput")
	}
	d.Progress().Reset()
	err := d.loader.Load(ctx, &countingReader{rows: rows, progress: d.Progress()})
	d.Progress().Finish()
	if err != nil {
		d.Logger().Error("load failed", zap.String("collection", d.coll.Name()), zap.Error(err))
	}
	return err
}

// Inserted returns the number of documents inserted so far.
func (d *Destination) Inserted() int64 {
	if d.loader == nil {
		return 0
	}
	return d.loader.Inserted()
}

type countingReader struct {
	rows     core.RowReader
	progress *base.ProgressReporter
}

func (c *countingReader) Next() ([]tabular.Value, error) {
	row, err := c.rows.Next()
	if err == nil {
		c.progress.IncrementProcessed(1)
	}
	return row, err
}
