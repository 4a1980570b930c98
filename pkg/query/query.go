// Package query builds the document predicate an extraction run is driven by.
package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/mongobridge/pkg/condition"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// ColumnLookup resolves an output column by name.
type ColumnLookup func(name string) (tabular.ColumnSchema, bool)

// Options selects the documents of a run. Query, when set, wins over the range.
type Options struct {
	Query string `yaml:"query" mapstructure:"query"`
	Field string `yaml:"conditional_field" mapstructure:"conditional_field"`
	From  string `yaml:"from" mapstructure:"from"`
	To    string `yaml:"to" mapstructure:"to"`
}

// Builder composes predicates from typed boundary conditions.
type Builder struct {
	Parser *condition.Parser
}

// NewBuilder returns a builder using p to parse boundaries. A nil p uses the wall clock.
func NewBuilder(p *condition.Parser) *Builder {
	if p == nil {
		p = &condition.Parser{}
	}
	return &Builder{Parser: p}
}

// Build returns {field: {$gte: from, $lte: to}}, omitting an empty bound. The
// field must resolve even when both bounds are empty, in which case Build
// returns nil.
func (b *Builder) Build(field, from, to string, lookup ColumnLookup) (bson.D, error) {
	col, ok := lookup(field)
	if !ok {
		return nil, errors.UnknownColumn(field)
	}
	if from == "" && to == "" {
		return nil, nil
	}

	var ops bson.D
	if from != "" {
		v, err := b.Parser.Parse(from, col.Type)
		if err != nil {
			return nil, err
		}
		ops = append(ops, bson.E{Key: "$gte", Value: predicateValue(v)})
	}
	if to != "" {
		v, err := b.Parser.Parse(to, col.Type)
		if err != nil {
			return nil, err
		}
		ops = append(ops, bson.E{Key: "$lte", Value: predicateValue(v)})
	}
	return bson.D{{Key: field, Value: ops}}, nil
}

// Resolve picks the predicate for opts: the raw query if present, else the
// conditional range, else an unconditional scan (an empty document).
func (b *Builder) Resolve(opts Options, lookup ColumnLookup) (bson.D, error) {
	if strings.TrimSpace(opts.Query) != "" {
		return ParseRawQuery(opts.Query)
	}
	if opts.Field != "" {
		pred, err := b.Build(opts.Field, opts.From, opts.To, lookup)
		if err != nil {
			return nil, err
		}
		if pred != nil {
			return pred, nil
		}
	}
	return bson.D{}, nil
}

// ParseRawQuery parses a query document written as relaxed extended JSON.
func ParseRawQuery(text string) (bson.D, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON([]byte(text), false, &d); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "malformed query document").
			WithDetail("query", text)
	}
	return d, nil
}

// predicateValue maps a parsed boundary to the value compared against stored
// documents. Times keep their instant.
func predicateValue(v tabular.Value) interface{} {
	if t, ok := v.TimeValue(); ok {
		return primitive.NewDateTimeFromTime(t)
	}
	switch {
	case v.Type().IsInteger():
		n, _ := v.Int64()
		return n
	case v.Type().IsFloat():
		f, _ := v.Float64()
		return f
	}
	return v.Text()
}
