package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/compression"
	"github.com/ajitpratap0/mongobridge/pkg/extract"
	"github.com/ajitpratap0/mongobridge/pkg/metrics"
	"github.com/ajitpratap0/mongobridge/pkg/sink"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// ExtractResult summarizes an extraction run.
type ExtractResult struct {
	Collection string
	OutputPath string
	// ErrorPath is empty when no column redirects rows.
	ErrorPath string
	Columns   []string
	Stats     extract.Stats
	// PinnedVersion is the pinned schema version used, or zero when the
	// schema was inferred for this run.
	PinnedVersion int
	RowsPerSecond float64
}

// Extract writes every selected document of the source collection to the
// configured output. A pinned schema, when present, is used as is.
func (p *Pipeline) Extract(ctx context.Context) (res *ExtractResult, err error) {
	ctx, l, done := p.begin(ctx, "extract", p.cfg.Source.Collection)
	defer done()

	src, err := p.newSource(l)
	if err != nil {
		return nil, err
	}
	res = &ExtractResult{Collection: p.cfg.Source.Collection}

	reg, err := p.loadRegistry(l)
	if err != nil {
		return nil, err
	}
	var meta *tabular.Metadata
	if v, ok := p.pinned(reg); ok {
		meta = v.Metadata
		res.PinnedVersion = v.Version
		if err := p.cfg.Source.ApplyDispositions(meta); err != nil {
			return nil, err
		}
		l.Info("using pinned schema", zap.Int("version", v.Version), zap.String("fingerprint", v.Fingerprint))
	} else if meta, err = src.Discover(ctx); err != nil {
		return nil, err
	}
	res.Columns = columnNames(meta.Output)

	out := p.cfg.Output
	algo, err := compression.ParseAlgorithm(out.Compression)
	if err != nil {
		return nil, err
	}
	opts := sink.Options{Compression: algo, Level: out.Level(), BatchSize: out.BatchSize}

	output, err := sink.Create(out.Path, out.Format, meta.Output, opts)
	if err != nil {
		return nil, err
	}
	res.OutputPath = out.Path

	var errorSink *sink.Sink
	var errorBuf tabular.Buffer
	if meta.NeedsErrorOutput() {
		res.ErrorPath = out.ErrorPath
		if res.ErrorPath == "" {
			res.ErrorPath = ErrorPathFor(out.Path)
		}
		if errorSink, err = sink.Create(res.ErrorPath, out.Format, meta.ErrorOutput, opts); err != nil {
			_ = output.Close()
			return nil, err
		}
		errorBuf = errorSink
	}

	defer func() {
		if cerr := output.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if errorSink != nil {
			if cerr := errorSink.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	if err := src.PreExecute(meta, output, errorBuf); err != nil {
		return nil, err
	}
	tracker := metrics.NewThroughputTracker()
	if err := src.PrimeOutput(ctx); err != nil {
		res.Stats = src.Stats()
		l.Error("extract failed", zap.Int64("rows", res.Stats.Rows), zap.Error(err))
		return res, err
	}
	res.Stats = src.Stats()
	tracker.Increment(res.Stats.Rows)
	res.RowsPerSecond = tracker.GetAndReset()

	l.Info("extract complete",
		zap.String("output", res.OutputPath),
		zap.String("error_output", res.ErrorPath),
		zap.Int64("committed", res.Stats.Committed),
		zap.Int64("redirected", res.Stats.Redirected),
		zap.Int64("warnings", res.Stats.Warnings))
	return res, nil
}

// ErrorPathFor derives the redirected-rows file from the output path:
// out/orders.csv.gz becomes out/orders.errors.csv.gz.
func ErrorPathFor(path string) string {
	suffix := ""
	if a := compression.FromPath(path); a != compression.None {
		suffix = a.Extension()
		path = compression.StripExtension(path)
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".errors" + ext + suffix
}
