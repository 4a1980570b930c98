package schema

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// Version is one pinned schema of a collection.
type Version struct {
	Version     int               `yaml:"version"`
	Fingerprint string            `yaml:"fingerprint"`
	CreatedAt   time.Time         `yaml:"created_at"`
	Metadata    *tabular.Metadata `yaml:"metadata"`
}

// Registry keeps pinned schemas per collection. A pinned schema is the
// contract an extraction runs against; it only changes when re-registered.
type Registry struct {
	mu       sync.RWMutex
	versions map[string][]*Version
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistry creates an empty registry. A nil logger uses the global one.
func NewRegistry(l *zap.Logger) *Registry {
	if l == nil {
		l = logger.Component("schema_registry")
	}
	return &Registry{
		versions: make(map[string][]*Version),
		logger:   l,
		now:      time.Now,
	}
}

// Register pins meta for collection. If the output schema is unchanged from the
// latest version, that version is returned and created is false.
func (r *Registry) Register(collection string, meta *tabular.Metadata) (v *Version, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fp := Fingerprint(meta.Output)
	history := r.versions[collection]
	if n := len(history); n > 0 && history[n-1].Fingerprint == fp {
		history[n-1].Metadata = meta
		return history[n-1], false
	}

	v = &Version{
		Version:     len(history) + 1,
		Fingerprint: fp,
		CreatedAt:   r.now().UTC(),
		Metadata:    meta,
	}
	r.versions[collection] = append(history, v)
	r.logger.Info("schema registered",
		zap.String("collection", collection),
		zap.Int("version", v.Version),
		zap.String("fingerprint", fp))
	return v, true
}

// Latest returns the newest pinned schema of collection.
func (r *Registry) Latest(collection string) (*Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.versions[collection]
	if len(history) == 0 {
		return nil, false
	}
	return history[len(history)-1], true
}

// Versions returns every pinned schema of collection, oldest first.
func (r *Registry) Versions(collection string) []*Version {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Version(nil), r.versions[collection]...)
}

// Collections returns the collections with pinned schemas, sorted.
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.versions))
	for name := range r.versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the registry to path as YAML.
func (r *Registry) Save(path string) error {
	r.mu.RLock()
	data, err := yaml.Marshal(r.versions)
	r.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode schema registry")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write schema registry").WithDetail("path", path)
	}
	return nil
}

// LoadRegistry reads a registry written by Save. A missing file yields an empty registry.
func LoadRegistry(path string, l *zap.Logger) (*Registry, error) {
	r := NewRegistry(l)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read schema registry").WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, &r.versions); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "malformed schema registry").WithDetail("path", path)
	}
	if r.versions == nil {
		r.versions = make(map[string][]*Version)
	}
	return r, nil
}

// Fingerprint hashes the names, kinds and lengths of cols in order.
func Fingerprint(cols []tabular.ColumnSchema) string {
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(c.Name)
		b.WriteByte(':')
		b.WriteString(string(c.Type))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(c.Length))
		b.WriteByte(';')
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}

// ChangeKind classifies a difference between two schemas.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeType    ChangeKind = "type_changed"
)

// Change is one column-level difference.
type Change struct {
	Kind   ChangeKind
	Column string
	From   tabular.DataType
	To     tabular.DataType
}

func (c Change) String() string {
	switch c.Kind {
	case ChangeType:
		return fmt.Sprintf("%s: %s -> %s", c.Column, c.From, c.To)
	case ChangeAdded:
		return fmt.Sprintf("+%s (%s)", c.Column, c.To)
	}
	return fmt.Sprintf("-%s (%s)", c.Column, c.From)
}

// Diff reports how fresh differs from pinned: removed and retyped columns in
// pinned order, then added columns in fresh order.
func Diff(pinned, fresh []tabular.ColumnSchema) []Change {
	byName := make(map[string]tabular.ColumnSchema, len(fresh))
	for _, c := range fresh {
		byName[c.Name] = c
	}
	var changes []Change
	known := make(map[string]struct{}, len(pinned))
	for _, p := range pinned {
		known[p.Name] = struct{}{}
		f, ok := byName[p.Name]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeRemoved, Column: p.Name, From: p.Type})
		case f.Type != p.Type:
			changes = append(changes, Change{Kind: ChangeType, Column: p.Name, From: p.Type, To: f.Type})
		}
	}
	for _, f := range fresh {
		if _, ok := known[f.Name]; !ok {
			changes = append(changes, Change{Kind: ChangeAdded, Column: f.Name, To: f.Type})
		}
	}
	return changes
}
