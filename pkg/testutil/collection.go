package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
)

// Collection is an in-memory core.Collection. Filters support equality and the
// $exists, $eq, $ne, $gt, $gte, $lt and $lte operators on top-level or dotted paths.
type Collection struct {
	name string

	mu      sync.Mutex
	docs    []bson.Raw
	batches []int

	// InsertErr, when set, is returned by InsertMany without storing anything.
	InsertErr error
	// FindErr, when set, is returned by Find.
	FindErr error
	// Finds records the filter and options of each Find call.
	Finds []FindCall
}

// FindCall is one recorded Find invocation.
type FindCall struct {
	Filter bson.Raw
	Opts   core.FindOptions
}

// NewCollection returns a collection preloaded with docs (each marshalled with bson).
func NewCollection(name string, docs ...interface{}) *Collection {
	c := &Collection{name: name}
	for _, d := range docs {
		b, err := bson.Marshal(d)
		if err != nil {
			panic(fmt.Sprintf("testutil: marshal %v: %v", d, err))
		}
		c.docs = append(c.docs, b)
	}
	return c
}

// Name implements core.Collection.
func (c *Collection) Name() string { return c.name }

// Count implements core.Collection.
func (c *Collection) Count(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.docs)), nil
}

// Find implements core.Collection.
func (c *Collection) Find(_ context.Context, filter interface{}, opts core.FindOptions) (core.Cursor, error) {
	if c.FindErr != nil {
		return nil, c.FindErr
	}
	f, err := toRaw(filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Finds = append(c.Finds, FindCall{Filter: f, Opts: opts})

	var out []bson.Raw
	skipped := int64(0)
	for _, d := range c.docs {
		ok, err := matches(d, f)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if skipped < opts.Skip {
			skipped++
			continue
		}
		out = append(out, d)
		if opts.Limit > 0 && int64(len(out)) >= opts.Limit {
			break
		}
	}
	return &SliceCursor{Docs: out}, nil
}

// FindOne implements core.Collection.
func (c *Collection) FindOne(ctx context.Context, filter interface{}) (bson.Raw, error) {
	f, err := toRaw(filter)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		ok, err := matches(d, f)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
	}
	return nil, core.ErrNoDocuments
}

// InsertMany implements core.Collection.
func (c *Collection) InsertMany(_ context.Context, docs []interface{}) error {
	if c.InsertErr != nil {
		return c.InsertErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range docs {
		b, err := bson.Marshal(d)
		if err != nil {
			return err
		}
		c.docs = append(c.docs, b)
	}
	c.batches = append(c.batches, len(docs))
	return nil
}

// Docs returns the stored documents.
func (c *Collection) Docs() []bson.Raw {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bson.Raw(nil), c.docs...)
}

// Batches returns the size of each InsertMany call.
func (c *Collection) Batches() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.batches...)
}

// SliceCursor is a core.Cursor over a fixed slice.
type SliceCursor struct {
	Docs   []bson.Raw
	pos    int
	cur    bson.Raw
	Closed bool
}

// Next implements core.Cursor.
func (s *SliceCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil || s.pos >= len(s.Docs) {
		return false
	}
	s.cur = s.Docs[s.pos]
	s.pos++
	return true
}

// Current implements core.Cursor.
func (s *SliceCursor) Current() bson.Raw { return s.cur }

// Err implements core.Cursor.
func (s *SliceCursor) Err() error { return nil }

// Close implements core.Cursor.
func (s *SliceCursor) Close(context.Context) error {
	s.Closed = true
	return nil
}

func toRaw(filter interface{}) (bson.Raw, error) {
	if filter == nil {
		filter = bson.D{}
	}
	if r, ok := filter.(bson.Raw); ok {
		return r, nil
	}
	b, err := bson.Marshal(filter)
	if err != nil {
		return nil, err
	}
	return bson.Raw(b), nil
}

func matches(doc, filter bson.Raw) (bool, error) {
	elems, err := filter.Elements()
	if err != nil {
		return false, err
	}
	for _, e := range elems {
		field := doc.Lookup(strings.Split(e.Key(), ".")...)
		cond := e.Value()
		if ops, ok := operators(cond); ok {
			for _, op := range ops {
				ok, err := apply(op.Key(), field, op.Value())
				if err != nil || !ok {
					return false, err
				}
			}
			continue
		}
		if !equal(field, cond) {
			return false, nil
		}
	}
	return true, nil
}

func operators(v bson.RawValue) ([]bson.RawElement, bool) {
	if v.Type != bson.TypeEmbeddedDocument {
		return nil, false
	}
	elems, err := v.Document().Elements()
	if err != nil || len(elems) == 0 || !strings.HasPrefix(elems[0].Key(), "$") {
		return nil, false
	}
	return elems, true
}

func apply(op string, field, arg bson.RawValue) (bool, error) {
	switch op {
	case "$exists":
		want, _ := arg.BooleanOK()
		return present(field) == want, nil
	case "$eq":
		return equal(field, arg), nil
	case "$ne":
		return !equal(field, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		c, ok := compare(field, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	}
	return false, fmt.Errorf("testutil: unsupported operator %s", op)
}

func present(v bson.RawValue) bool { return v.Type != 0 }

func isNull(v bson.RawValue) bool {
	return v.Type == 0 || v.Type == bson.TypeNull || v.Type == bson.TypeUndefined
}

func equal(a, b bson.RawValue) bool {
	if isNull(b) {
		return isNull(a)
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return a.Equal(b)
}

func number(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bson.TypeInt32:
		return float64(v.Int32()), true
	case bson.TypeInt64:
		return float64(v.Int64()), true
	case bson.TypeDouble:
		return v.Double(), true
	}
	return 0, false
}

func compare(a, b bson.RawValue) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if a.Type != b.Type {
		return 0, false
	}
	switch a.Type {
	case bson.TypeString:
		return strings.Compare(a.StringValue(), b.StringValue()), true
	case bson.TypeDateTime:
		x, y := a.DateTime(), b.DateTime()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bson.TypeBoolean:
		if a.Boolean() == b.Boolean() {
			return 0, true
		}
		if !a.Boolean() {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}
