// Package mongobridge moves data between MongoDB collections and tabular
// files. It infers a column schema from a sample of a collection, extracts
// documents into CSV, JSON Lines or Parquet rows, and assembles tabular rows
// back into nested documents.
//
// # Architecture
//
// Extraction runs through four stages:
//
//  1. Schema inference (pkg/schema) samples the collection, collects the
//     distinct top-level fields in first-seen order and types each one from a
//     representative non-null value found anywhere in the collection.
//     Fields that are never non-null are dropped.
//
//  2. Query building (pkg/query, pkg/condition) turns either a raw filter
//     document or a condition field with a from/to range into the predicate.
//     Boundaries accept calendar literals and relative forms such as "now",
//     "today" and "-7".
//
//  3. Row extraction (pkg/extract) converts every matching document into one
//     row, applying each column's error and truncation disposition: fail the
//     run, redirect the row to the error output, or ignore the failure.
//
//  4. Sinks (pkg/sink) write the default and error outputs, optionally
//     compressed (pkg/compression).
//
// Loading reverses the flow: pkg/assemble turns dotted column names into a
// document template and inserts the assembled documents in batches.
//
// # Quick Start
//
//	mongobridge discover -c job.yaml --pin
//	mongobridge extract -c job.yaml --output out/orders.csv.gz --compression gzip
//	mongobridge load -c job.yaml --input out/orders.csv.gz --collection orders_copy
//
// # Key Packages
//
//	pkg/typemap      - Document value <-> column kind conversion
//	pkg/schema       - Inference and the pinned schema registry
//	pkg/query        - Predicate construction
//	pkg/extract      - Document to row conversion with dispositions
//	pkg/assemble     - Row to document assembly and batched inserts
//	pkg/sink         - CSV, JSON Lines and Parquet outputs
//	pkg/mongodb      - Driver connection and collection adapters
//	pkg/config       - YAML configuration with ${VAR} substitution
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus metrics
//
// # Configuration
//
// Jobs are described in YAML. Environment variables are supported with
// ${VAR_NAME} syntax inside the file, and MONGOBRIDGE_* variables override
// individual keys, e.g. MONGOBRIDGE_CONNECTION_PASSWORD.
//
// # Testing
//
// Unit tests run against an in-memory collection (pkg/testutil). Integration
// tests run when MONGOBRIDGE_TEST_URI names a reachable server:
//
//	MONGOBRIDGE_TEST_URI=mongodb://localhost:27017 go test ./...
package mongobridge
