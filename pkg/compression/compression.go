// Package compression wraps file streams written and read by the sinks with
// the configured codec.
//
// Codecs are picked by name in configuration or from a file's extension:
//
//	w, err := compression.NewWriter(f, compression.Zstd, compression.Default)
//	defer w.Close()
package compression

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
)

// Algorithm names a codec.
type Algorithm string

const (
	None    Algorithm = "none"
	Gzip    Algorithm = "gzip"
	Snappy  Algorithm = "snappy"
	LZ4     Algorithm = "lz4"
	Zstd    Algorithm = "zstd"
	S2      Algorithm = "s2"
	Deflate Algorithm = "deflate"
)

// Level trades speed for ratio.
type Level int

const (
	Fastest Level = 1
	Default Level = 5
	Better  Level = 7
	Best    Level = 9
)

var extensions = map[Algorithm]string{
	Gzip:    ".gz",
	Snappy:  ".sz",
	LZ4:     ".lz4",
	Zstd:    ".zst",
	S2:      ".s2",
	Deflate: ".deflate",
}

// ParseAlgorithm resolves a configured codec name. Empty means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if a == "" {
		return None, nil
	}
	if a == None {
		return a, nil
	}
	if _, ok := extensions[a]; !ok {
		return None, errors.Newf(errors.ErrorTypeConfig, "unknown compression %q", s)
	}
	return a, nil
}

// Extension returns the file suffix for a, or "" for None.
func (a Algorithm) Extension() string { return extensions[a] }

// FromPath guesses the codec from a file name's last extension.
func FromPath(path string) Algorithm {
	ext := strings.ToLower(filepath.Ext(path))
	for a, e := range extensions {
		if e == ext {
			return a
		}
	}
	return None
}

// StripExtension removes the codec suffix from path, if present.
func StripExtension(path string) string {
	if a := FromPath(path); a != None {
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return path
}

// NewWriter wraps w so bytes written are compressed with a. Closing the
// returned writer flushes the codec but does not close w.
func NewWriter(w io.Writer, a Algorithm, level Level) (io.WriteCloser, error) {
	switch a {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		gw, err := gzip.NewWriterLevel(w, gzipLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gzip level")
		}
		return gw, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w), nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid lz4 level")
		}
		return lw, nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid zstd options")
		}
		return enc, nil
	case Deflate:
		fw, err := flate.NewWriter(w, flateLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid deflate level")
		}
		return fw, nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unknown compression %q", string(a))
}

// NewReader wraps r so reads return decompressed bytes.
func NewReader(r io.Reader, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid gzip stream")
		}
		return gr, nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid zstd stream")
		}
		return dec.IOReadCloser(), nil
	case Deflate:
		return flate.NewReader(r), nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unknown compression %q", string(a))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func gzipLevel(l Level) int {
	switch l {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	}
	return gzip.DefaultCompression
}

func flateLevel(l Level) int {
	switch l {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	}
	return flate.DefaultCompression
}

func lz4Level(l Level) lz4.CompressionLevel {
	switch l {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	}
	return lz4.Level5
}

func zstdLevel(l Level) zstd.EncoderLevel {
	switch l {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	}
	return zstd.SpeedDefault
}
