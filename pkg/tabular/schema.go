package tabular

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
)

// Disposition decides what happens to a row when one of its columns fails.
type Disposition string

const (
	FailComponent Disposition = "fail_component"
	RedirectRow   Disposition = "redirect_row"
	Ignore        Disposition = "ignore"
)

// ParseDisposition resolves a disposition name. Empty input yields FailComponent.
func ParseDisposition(s string) (Disposition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "fail_component", "failcomponent":
		return FailComponent, nil
	case "redirect", "redirect_row", "redirectrow":
		return RedirectRow, nil
	case "ignore", "ignore_failure":
		return Ignore, nil
	}
	return "", fmt.Errorf("unknown disposition %q", s)
}

// Sentinel columns leading every error schema.
const (
	ErrorCodeColumn   = "ErrorCode"
	ErrorColumnColumn = "ErrorColumn"
)

// Error codes written to the ErrorCode sentinel of a redirected row.
const (
	ErrorCodeConversion int64 = 1
	ErrorCodeTruncation int64 = 2
)

// Default attributes of inferred character columns.
const (
	DefaultStringLength = 256
	DefaultCodePage     = 1252
)

// ColumnSchema describes one column of an output or error schema.
type ColumnSchema struct {
	ID                    int         `yaml:"id" json:"id"`
	Name                  string      `yaml:"name" json:"name"`
	Type                  DataType    `yaml:"type" json:"type"`
	Length                int         `yaml:"length,omitempty" json:"length,omitempty"`
	Precision             int         `yaml:"precision,omitempty" json:"precision,omitempty"`
	Scale                 int         `yaml:"scale,omitempty" json:"scale,omitempty"`
	CodePage              int         `yaml:"code_page,omitempty" json:"code_page,omitempty"`
	ErrorDisposition      Disposition `yaml:"error_disposition,omitempty" json:"error_disposition,omitempty"`
	TruncationDisposition Disposition `yaml:"truncation_disposition,omitempty" json:"truncation_disposition,omitempty"`
}

// OnError returns the column's error disposition, defaulting to FailComponent.
func (c ColumnSchema) OnError() Disposition {
	if c.ErrorDisposition == "" {
		return FailComponent
	}
	return c.ErrorDisposition
}

// OnTruncation returns the column's truncation disposition, defaulting to FailComponent.
func (c ColumnSchema) OnTruncation() Disposition {
	if c.TruncationDisposition == "" {
		return FailComponent
	}
	return c.TruncationDisposition
}

// Fit checks v against the column's declared length.
func (c ColumnSchema) Fit(v Value) error {
	if c.Length <= 0 || v.IsNull() || !(c.Type.IsText() || c.Type.IsBinary()) {
		return nil
	}
	if n := v.Len(); n > c.Length {
		return errors.Truncation(c.Name, c.Length, n)
	}
	return nil
}

// IsSentinel reports whether name is one of the host-managed error columns.
func IsSentinel(name string) bool {
	return name == ErrorCodeColumn || name == ErrorColumnColumn
}

// Metadata holds the default output schema and its mirrored error schema.
type Metadata struct {
	Output      []ColumnSchema `yaml:"output" json:"output"`
	ErrorOutput []ColumnSchema `yaml:"error_output" json:"error_output"`
	NextID      int            `yaml:"next_id" json:"next_id"`
}

// NewMetadata returns metadata whose error schema holds only the sentinels.
func NewMetadata() *Metadata {
	m := &Metadata{NextID: 1}
	m.ErrorOutput = []ColumnSchema{
		{ID: m.allocID(), Name: ErrorCodeColumn, Type: TypeI4},
		{ID: m.allocID(), Name: ErrorColumnColumn, Type: TypeI4},
	}
	return m
}

func (m *Metadata) allocID() int {
	if m.NextID <= 0 {
		m.NextID = 1
	}
	id := m.NextID
	m.NextID++
	return id
}

// ReplaceColumns drops every previously inferred column from both schemas and
// installs cols, mirroring them into the error schema. Sentinels survive.
func (m *Metadata) ReplaceColumns(cols []ColumnSchema) {
	kept := m.ErrorOutput[:0]
	for _, c := range m.ErrorOutput {
		if IsSentinel(c.Name) {
			kept = append(kept, c)
		}
	}
	m.ErrorOutput = kept
	m.ensureSentinels()

	m.Output = make([]ColumnSchema, 0, len(cols))
	for _, c := range cols {
		c.ID = m.allocID()
		m.Output = append(m.Output, c)

		mirror := c
		mirror.ID = m.allocID()
		mirror.ErrorDisposition = ""
		mirror.TruncationDisposition = ""
		m.ErrorOutput = append(m.ErrorOutput, mirror)
	}
}

func (m *Metadata) ensureSentinels() {
	for _, name := range []string{ErrorCodeColumn, ErrorColumnColumn} {
		if _, ok := find(m.ErrorOutput, name); !ok {
			m.ErrorOutput = append(m.ErrorOutput, ColumnSchema{ID: m.allocID(), Name: name, Type: TypeI4})
		}
	}
}

// Lookup returns the output column with the given name.
func (m *Metadata) Lookup(name string) (ColumnSchema, bool) {
	return find(m.Output, name)
}

// SetDisposition updates the error and truncation dispositions of a column.
// Empty arguments leave the current setting in place.
func (m *Metadata) SetDisposition(name string, onError, onTruncation Disposition) error {
	for i := range m.Output {
		if m.Output[i].Name != name {
			continue
		}
		if onError != "" {
			m.Output[i].ErrorDisposition = onError
		}
		if onTruncation != "" {
			m.Output[i].TruncationDisposition = onTruncation
		}
		return nil
	}
	return errors.UnknownColumn(name)
}

// NeedsErrorOutput reports whether any column redirects failing rows.
func (m *Metadata) NeedsErrorOutput() bool {
	for _, c := range m.Output {
		if c.OnError() == RedirectRow || c.OnTruncation() == RedirectRow {
			return true
		}
	}
	return false
}

func find(cols []ColumnSchema, name string) (ColumnSchema, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}
