package tabular

import (
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type payload uint8

const (
	payloadNull payload = iota
	payloadInt
	payloadFloat
	payloadBool
	payloadTime
	payloadString
	payloadBytes
	payloadGUID
)

// Value is a typed column value. The zero Value is a null of no kind.
type Value struct {
	kind DataType
	p    payload
	i    int64
	f    float64
	b    bool
	t    time.Time
	s    string
	raw  []byte
	guid uuid.UUID
}

// Null returns a null value of kind t.
func Null(t DataType) Value { return Value{kind: t} }

// Int returns an integer value of kind t.
func Int(t DataType, v int64) Value { return Value{kind: t, p: payloadInt, i: v} }

// Float returns a floating value of kind t.
func Float(t DataType, v float64) Value { return Value{kind: t, p: payloadFloat, f: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: TypeBool, p: payloadBool, b: v} }

// Time returns a date/time value of kind t.
func Time(t DataType, v time.Time) Value { return Value{kind: t, p: payloadTime, t: v} }

// String returns a character value of kind t.
func String(t DataType, v string) Value { return Value{kind: t, p: payloadString, s: v} }

// Bytes returns a byte-array value of kind t.
func Bytes(t DataType, v []byte) Value { return Value{kind: t, p: payloadBytes, raw: v} }

// GUID returns a GUID value.
func GUID(v uuid.UUID) Value { return Value{kind: TypeGUID, p: payloadGUID, guid: v} }

// Type returns the value's kind.
func (v Value) Type() DataType { return v.kind }

// IsNull reports whether the value carries no payload.
func (v Value) IsNull() bool { return v.p == payloadNull }

// Int64 returns the value as an integer. Floats are truncated and booleans map to 0/1.
func (v Value) Int64() (int64, bool) {
	switch v.p {
	case payloadInt:
		return v.i, true
	case payloadFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0, false
		}
		return int64(v.f), true
	case payloadBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Float64 returns the value as a float.
func (v Value) Float64() (float64, bool) {
	switch v.p {
	case payloadFloat:
		return v.f, true
	case payloadInt:
		return float64(v.i), true
	case payloadBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// BoolValue returns the boolean payload.
func (v Value) BoolValue() (bool, bool) {
	switch v.p {
	case payloadBool:
		return v.b, true
	case payloadInt:
		return v.i != 0, true
	}
	return false, false
}

// TimeValue returns the date/time payload.
func (v Value) TimeValue() (time.Time, bool) {
	return v.t, v.p == payloadTime
}

// BytesValue returns the byte-array payload.
func (v Value) BytesValue() ([]byte, bool) {
	switch v.p {
	case payloadBytes:
		return v.raw, true
	case payloadGUID:
		b := v.guid
		return b[:], true
	}
	return nil, false
}

// GUIDValue returns the GUID payload.
func (v Value) GUIDValue() (uuid.UUID, bool) {
	return v.guid, v.p == payloadGUID
}

// Text returns the textual form of the value. Nulls render as "".
func (v Value) Text() string {
	switch v.p {
	case payloadInt:
		return strconv.FormatInt(v.i, 10)
	case payloadFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case payloadBool:
		return strconv.FormatBool(v.b)
	case payloadTime:
		return v.t.Format(time.RFC3339Nano)
	case payloadString:
		return v.s
	case payloadBytes:
		return hex.EncodeToString(v.raw)
	case payloadGUID:
		return v.guid.String()
	}
	return ""
}

// Interface returns the payload as a plain Go value, or nil for nulls.
func (v Value) Interface() interface{} {
	switch v.p {
	case payloadInt:
		return v.i
	case payloadFloat:
		return v.f
	case payloadBool:
		return v.b
	case payloadTime:
		return v.t
	case payloadString:
		return v.s
	case payloadBytes:
		return v.raw
	case payloadGUID:
		return v.guid.String()
	}
	return nil
}

// Len returns the character length of a string payload, or the byte length of
// a byte payload. Other payloads report 0.
func (v Value) Len() int {
	switch v.p {
	case payloadString:
		return len([]rune(v.s))
	case payloadBytes:
		return len(v.raw)
	}
	return 0
}

// Truncate clamps string and byte payloads to length. Other values and
// non-positive lengths are returned unchanged.
func (v Value) Truncate(length int) Value {
	if length <= 0 {
		return v
	}
	switch v.p {
	case payloadString:
		r := []rune(v.s)
		if len(r) > length {
			v.s = string(r[:length])
		}
	case payloadBytes:
		if len(v.raw) > length {
			v.raw = append([]byte(nil), v.raw[:length]...)
		}
	}
	return v
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.p != o.p {
		return false
	}
	switch v.p {
	case payloadInt:
		return v.i == o.i
	case payloadFloat:
		return v.f == o.f
	case payloadBool:
		return v.b == o.b
	case payloadTime:
		return v.t.Equal(o.t)
	case payloadString:
		return v.s == o.s
	case payloadBytes:
		return string(v.raw) == string(o.raw)
	case payloadGUID:
		return v.guid == o.guid
	}
	return true
}
