// Package connector groups the pieces that move rows between a MongoDB
// collection and a tabular host.
//
// # Layout
//
//   - core: the narrow interfaces the bridge consumes (Collection, Cursor)
//     and offers (Source, Destination, RowReader).
//
//   - base: BaseConnector, embedded by both connectors. It carries the
//     component logger, the retry policy for store calls, error
//     classification and row progress reporting.
//
//   - sources/mongodb: infers a tabular schema from a sample of the
//     collection, resolves the condition range or raw query into a filter and
//     streams matching documents into the host's output and error buffers.
//
//   - destinations/mongodb: builds a document template from dotted column
//     names and inserts assembled documents in batches.
//
// # Lifecycle
//
// A source is driven in three steps:
//
//	src := srcmongo.NewSource(coll, srcmongo.Options{})
//	meta, err := src.Discover(ctx)
//	...
//	err = src.PreExecute(meta, output, errorOutput)
//	...
//	err = src.PrimeOutput(ctx)
//
// A destination in two:
//
//	dst := dstmongo.NewDestination(coll, 500)
//	err := dst.PreExecute(cols)
//	...
//	err = dst.ProcessInput(ctx, rows)
//
// Both take any core.Collection, so tests run against testutil.Collection and
// the CLI against a live client from pkg/mongodb.
package connector
