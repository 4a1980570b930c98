package tabular

import (
	"github.com/ajitpratap0/mongobridge/pkg/errors"
)

// Buffer is a host row sink. AddRow opens a new row; values are set on the
// open row by column index; RemoveRow discards it. SetValue returns a
// truncation error when the value does not fit the column's declared length.
type Buffer interface {
	Columns() []ColumnSchema
	AddRow() error
	SetValue(index int, v Value) error
	SetNull(index int) error
	RemoveRow() error
	SetEndOfRowset() error
}

// IndexMap maps column names to buffer indexes.
type IndexMap map[string]int

// ResolveIndexes maps every column in cols to its index in buf.
func ResolveIndexes(cols []ColumnSchema, buf Buffer) (IndexMap, error) {
	positions := make(map[string]int, len(buf.Columns()))
	for i, c := range buf.Columns() {
		positions[c.Name] = i
	}
	m := make(IndexMap, len(cols))
	for _, c := range cols {
		idx, ok := positions[c.Name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeConfig, "column %q has no slot in the row buffer", c.Name).
				WithDetail(errors.DetailColumn, c.Name)
		}
		m[c.Name] = idx
	}
	return m, nil
}

// MemoryBuffer is an in-memory Buffer. Committed rows are available from Rows.
type MemoryBuffer struct {
	columns []ColumnSchema
	rows    [][]Value
	open    []Value
	hasOpen bool
	ended   bool
}

// NewMemoryBuffer creates a buffer over cols.
func NewMemoryBuffer(cols []ColumnSchema) *MemoryBuffer {
	return &MemoryBuffer{columns: cols}
}

// Columns implements Buffer.
func (b *MemoryBuffer) Columns() []ColumnSchema { return b.columns }

// AddRow implements Buffer. The previously open row is committed.
func (b *MemoryBuffer) AddRow() error {
	if b.ended {
		return errors.New(errors.ErrorTypeInternal, "row added after end of rowset")
	}
	b.commit()
	b.open = make([]Value, len(b.columns))
	for i, c := range b.columns {
		b.open[i] = Null(c.Type)
	}
	b.hasOpen = true
	return nil
}

// SetValue implements Buffer.
func (b *MemoryBuffer) SetValue(index int, v Value) error {
	if err := b.check(index); err != nil {
		return err
	}
	if err := b.columns[index].Fit(v); err != nil {
		return err
	}
	b.open[index] = v
	return nil
}

// SetNull implements Buffer.
func (b *MemoryBuffer) SetNull(index int) error {
	if err := b.check(index); err != nil {
		return err
	}
	b.open[index] = Null(b.columns[index].Type)
	return nil
}

// RemoveRow implements Buffer.
func (b *MemoryBuffer) RemoveRow() error {
	if !b.hasOpen {
		return errors.New(errors.ErrorTypeInternal, "no open row to remove")
	}
	b.open = nil
	b.hasOpen = false
	return nil
}

// SetEndOfRowset implements Buffer.
func (b *MemoryBuffer) SetEndOfRowset() error {
	b.commit()
	b.ended = true
	return nil
}

// Rows returns the committed rows.
func (b *MemoryBuffer) Rows() [][]Value { return b.rows }

// Ended reports whether SetEndOfRowset has been called.
func (b *MemoryBuffer) Ended() bool { return b.ended }

func (b *MemoryBuffer) commit() {
	if b.hasOpen {
		b.rows = append(b.rows, b.open)
		b.open = nil
		b.hasOpen = false
	}
}

func (b *MemoryBuffer) check(index int) error {
	if !b.hasOpen {
		return errors.New(errors.ErrorTypeInternal, "no open row")
	}
	if index < 0 || index >= len(b.columns) {
		return errors.Newf(errors.ErrorTypeInternal, "column index %d out of range", index)
	}
	return nil
}
