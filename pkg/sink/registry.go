package sink

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// Factory builds a RowWriter for a format.
type Factory func(w io.Writer, cols []tabular.ColumnSchema, opts Options) (RowWriter, error)

// Format describes a registered file format.
type Format struct {
	Name      string
	Extension string
	// CompressesInternally formats take Options.Compression themselves
	// instead of being wrapped in a compressed stream.
	CompressesInternally bool
	New                  Factory
}

var (
	mu      sync.RWMutex
	formats = map[string]Format{}
)

// Register adds a format. Registering a name twice is an error.
func Register(f Format) error {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(f.Name)
	if _, exists := formats[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("format %s already registered", name))
	}
	formats[name] = f
	return nil
}

// Lookup returns the named format.
func Lookup(name string) (Format, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := formats[strings.ToLower(name)]
	if !ok {
		return Format{}, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("format %s not found", name))
	}
	return f, nil
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func mustRegister(f Format) {
	if err := Register(f); err != nil {
		panic(err)
	}
}

func init() {
	mustRegister(Format{Name: "csv", Extension: ".csv", New: newCSVWriter})
	mustRegister(Format{Name: "jsonl", Extension: ".jsonl", New: newJSONLWriter})
	mustRegister(Format{Name: "parquet", Extension: ".parquet", CompressesInternally: true, New: newParquetWriter})
}
