// Package tabular defines the strictly-typed side of the bridge: column kinds,
// typed values, column schemas and the row buffers rows are written into.
package tabular

import (
	"fmt"
	"math"
	"strings"
)

// DataType is a host column kind.
type DataType string

const (
	TypeBool              DataType = "bool"
	TypeDate              DataType = "date"
	TypeDBDate            DataType = "dbdate"
	TypeDBTime            DataType = "dbtime"
	TypeDBTime2           DataType = "dbtime2"
	TypeDBTimestamp       DataType = "dbtimestamp"
	TypeDBTimestamp2      DataType = "dbtimestamp2"
	TypeDBTimestampOffset DataType = "dbtimestampoffset"
	TypeFileTime          DataType = "filetime"
	TypeGUID              DataType = "guid"
	TypeImage             DataType = "image"
	TypeBytes             DataType = "bytes"
	TypeNull              DataType = "null"
	TypeEmpty             DataType = "empty"
	TypeNumeric           DataType = "numeric"
	TypeR4                DataType = "r4"
	TypeR8                DataType = "r8"
	TypeDecimal           DataType = "decimal"
	TypeCurrency          DataType = "cy"
	TypeI1                DataType = "i1"
	TypeI2                DataType = "i2"
	TypeI4                DataType = "i4"
	TypeI8                DataType = "i8"
	TypeUI1               DataType = "ui1"
	TypeUI2               DataType = "ui2"
	TypeUI4               DataType = "ui4"
	TypeUI8               DataType = "ui8"
	TypeText              DataType = "text"
	TypeString            DataType = "str"
	TypeWString           DataType = "wstr"
	TypeNText             DataType = "ntext"
)

var knownTypes = map[DataType]struct{}{
	TypeBool: {}, TypeDate: {}, TypeDBDate: {}, TypeDBTime: {}, TypeDBTime2: {},
	TypeDBTimestamp: {}, TypeDBTimestamp2: {}, TypeDBTimestampOffset: {}, TypeFileTime: {},
	TypeGUID: {}, TypeImage: {}, TypeBytes: {}, TypeNull: {}, TypeEmpty: {},
	TypeNumeric: {}, TypeR4: {}, TypeR8: {}, TypeDecimal: {}, TypeCurrency: {},
	TypeI1: {}, TypeI2: {}, TypeI4: {}, TypeI8: {},
	TypeUI1: {}, TypeUI2: {}, TypeUI4: {}, TypeUI8: {},
	TypeText: {}, TypeString: {}, TypeWString: {}, TypeNText: {},
}

// ParseDataType resolves a kind name, case-insensitively. The "dt_" prefix used
// by some hosts is accepted.
func ParseDataType(s string) (DataType, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "dt_")
	t := DataType(name)
	if _, ok := knownTypes[t]; !ok {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return t, nil
}

// IsInteger reports whether t is a signed or unsigned integer kind.
func (t DataType) IsInteger() bool {
	switch t {
	case TypeI1, TypeI2, TypeI4, TypeI8, TypeUI1, TypeUI2, TypeUI4, TypeUI8:
		return true
	}
	return false
}

// CheckRange reports an error when n does not fit integer kind t. Non-integer
// kinds and i8 accept any n.
func (t DataType) CheckRange(n int64) error {
	var lo, hi int64
	switch t {
	case TypeI1:
		lo, hi = math.MinInt8, math.MaxInt8
	case TypeI2:
		lo, hi = math.MinInt16, math.MaxInt16
	case TypeI4:
		lo, hi = math.MinInt32, math.MaxInt32
	case TypeUI1:
		lo, hi = 0, math.MaxUint8
	case TypeUI2:
		lo, hi = 0, math.MaxUint16
	case TypeUI4:
		lo, hi = 0, math.MaxUint32
	case TypeUI8:
		lo, hi = 0, math.MaxInt64
	default:
		return nil
	}
	if n < lo || n > hi {
		return fmt.Errorf("%d is out of range for %s", n, t)
	}
	return nil
}

// IsFloat reports whether t is a floating or decimal kind.
func (t DataType) IsFloat() bool {
	switch t {
	case TypeR4, TypeR8, TypeNumeric, TypeDecimal:
		return true
	}
	return false
}

// IsDate reports whether t is a date, time or timestamp kind.
func (t DataType) IsDate() bool {
	switch t {
	case TypeDate, TypeDBDate, TypeDBTime, TypeDBTime2, TypeDBTimestamp,
		TypeDBTimestamp2, TypeDBTimestampOffset, TypeFileTime:
		return true
	}
	return false
}

// IsText reports whether t is a character kind.
func (t DataType) IsText() bool {
	switch t {
	case TypeText, TypeString, TypeWString, TypeNText:
		return true
	}
	return false
}

// IsBinary reports whether t is a byte-array kind.
func (t DataType) IsBinary() bool {
	return t == TypeBytes || t == TypeImage
}

func (t DataType) String() string { return string(t) }
