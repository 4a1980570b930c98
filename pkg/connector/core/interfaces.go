// Package core holds the narrow interfaces the bridge consumes from the
// document store and offers to hosts.
package core

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// ErrNoDocuments is returned by FindOne when nothing matches the filter.
var ErrNoDocuments = stderrors.New("no documents match the filter")

// FindOptions bounds a Find. Zero values mean no limit and no skip.
type FindOptions struct {
	Limit int64
	Skip  int64
}

// Cursor is a forward-only, one-shot iterator over query results.
type Cursor interface {
	Next(ctx context.Context) bool
	// Current returns the document the last successful Next moved to.
	Current() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

// Collection is the subset of a document collection the bridge uses.
type Collection interface {
	Name() string
	Count(ctx context.Context) (int64, error)
	// Find runs filter and returns a cursor over matching documents in
	// natural order.
	Find(ctx context.Context, filter interface{}, opts FindOptions) (Cursor, error)
	// FindOne returns the first document matching filter, or ErrNoDocuments.
	FindOne(ctx context.Context, filter interface{}) (bson.Raw, error)
	InsertMany(ctx context.Context, docs []interface{}) error
}

// Source produces tabular rows from a collection.
type Source interface {
	Name() string
	// Discover infers the output and error schemas.
	Discover(ctx context.Context) (*tabular.Metadata, error)
	// PreExecute binds the schema to the host's row buffers.
	PreExecute(meta *tabular.Metadata, output, errorOutput tabular.Buffer) error
	// PrimeOutput streams the selected documents into the bound buffers.
	PrimeOutput(ctx context.Context) error
}

// RowReader yields input rows for a destination. It returns io.EOF when done.
type RowReader interface {
	Next() ([]tabular.Value, error)
}

// Destination writes tabular rows into a collection as documents.
type Destination interface {
	Name() string
	PreExecute(cols []tabular.ColumnSchema) error
	ProcessInput(ctx context.Context, rows RowReader) error
}
