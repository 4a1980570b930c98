// Package assemble rebuilds nested documents from flat rows whose column
// names are dot-separated paths.
package assemble

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// ColumnInfo is an input column mapped to a document path.
type ColumnInfo struct {
	Name  string
	Path  []string
	Type  tabular.DataType
	Index int
}

// NewColumnInfo splits name on '.' into its path.
func NewColumnInfo(name string, t tabular.DataType, index int) ColumnInfo {
	return ColumnInfo{Name: name, Path: strings.Split(name, "."), Type: t, Index: index}
}

// Depth is the number of path segments.
func (c ColumnInfo) Depth() int { return len(c.Path) }

// SortColumns orders cols by depth, then by full name.
func SortColumns(cols []ColumnInfo) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Depth() != cols[j].Depth() {
			return cols[i].Depth() < cols[j].Depth()
		}
		return cols[i].Name < cols[j].Name
	})
}

// MaxDepth returns the greatest depth among cols.
func MaxDepth(cols []ColumnInfo) int {
	depth := 0
	for _, c := range cols {
		if c.Depth() > depth {
			depth = c.Depth()
		}
	}
	return depth
}

// Template is the empty document every row starts from: nested documents for
// intermediate segments and nulls for leaves.
type Template struct {
	root    bson.D
	columns []ColumnInfo
}

// BuildTemplate creates the template for cols. Columns are sorted in place.
// A column that is both a leaf and the parent of another column is an error.
func BuildTemplate(cols []ColumnInfo) (*Template, error) {
	SortColumns(cols)

	root := bson.D{}
	for level := 0; level < MaxDepth(cols); level++ {
		prev := ""
		for _, c := range cols {
			if c.Depth() <= level {
				continue
			}
			prefix := strings.Join(c.Path[:level+1], ".")
			if prefix == prev {
				continue
			}
			prev = prefix

			leaf := level == c.Depth()-1
			var err error
			root, err = ensure(root, c.Path[:level+1], leaf)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "conflicting column paths").
					WithDetail(errors.DetailColumn, c.Name)
			}
		}
	}
	return &Template{root: root, columns: cols}, nil
}

// Columns returns the template's columns in build order.
func (t *Template) Columns() []ColumnInfo { return t.columns }

// NewDocument returns an independent copy of the template.
func (t *Template) NewDocument() bson.D { return Clone(t.root) }

// ensure creates path in doc if missing. Intermediate segments are documents;
// the last is a null leaf when leaf is set, a document otherwise.
func ensure(doc bson.D, path []string, leaf bool) (bson.D, error) {
	key := path[0]
	last := len(path) == 1
	for i := range doc {
		if doc[i].Key != key {
			continue
		}
		child, isDoc := doc[i].Value.(bson.D)
		if last {
			if leaf == isDoc {
				return nil, errors.Newf(errors.ErrorTypeConfig, "%q is used both as a value and as a document", key)
			}
			return doc, nil
		}
		if !isDoc {
			return nil, errors.Newf(errors.ErrorTypeConfig, "%q is used both as a value and as a document", key)
		}
		child, err := ensure(child, path[1:], leaf)
		if err != nil {
			return nil, err
		}
		doc[i].Value = child
		return doc, nil
	}

	if last {
		if leaf {
			return append(doc, bson.E{Key: key, Value: primitive.Null{}}), nil
		}
		return append(doc, bson.E{Key: key, Value: bson.D{}}), nil
	}
	child, err := ensure(bson.D{}, path[1:], leaf)
	if err != nil {
		return nil, err
	}
	return append(doc, bson.E{Key: key, Value: child}), nil
}

// InsertValue sets the leaf at col's path to v, creating missing documents on
// the way. It fails if a segment on the path holds a non-document value.
func InsertValue(doc bson.D, col ColumnInfo, v interface{}) (bson.D, error) {
	return set(doc, col.Path, v)
}

func set(doc bson.D, path []string, v interface{}) (bson.D, error) {
	key := path[0]
	for i := range doc {
		if doc[i].Key != key {
			continue
		}
		if len(path) == 1 {
			doc[i].Value = v
			return doc, nil
		}
		child, ok := doc[i].Value.(bson.D)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "%q is not a document", key)
		}
		child, err := set(child, path[1:], v)
		if err != nil {
			return nil, err
		}
		doc[i].Value = child
		return doc, nil
	}

	if len(path) == 1 {
		return append(doc, bson.E{Key: key, Value: v}), nil
	}
	child, err := set(bson.D{}, path[1:], v)
	if err != nil {
		return nil, err
	}
	return append(doc, bson.E{Key: key, Value: child}), nil
}

// Clone deep-copies nested documents and byte payloads of doc.
func Clone(doc bson.D) bson.D {
	if doc == nil {
		return nil
	}
	out := make(bson.D, len(doc))
	for i, e := range doc {
		out[i] = bson.E{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.D:
		return Clone(x)
	case primitive.Binary:
		return primitive.Binary{Subtype: x.Subtype, Data: append([]byte(nil), x.Data...)}
	case []byte:
		return append([]byte(nil), x...)
	}
	return v
}
