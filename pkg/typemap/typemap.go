// Package typemap converts between document values and typed column values.
//
// Ingestion goes through InferColumn (once per field, at schema discovery) and
// ToTabularValue (once per cell). Emission goes through ToDocumentValue.
package typemap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

const binarySubtypeUUID byte = 0x04

// InferKind picks the column kind for a representative document value.
// Order matters: datetime, double, boolean, integers, then string for everything else.
func InferKind(v bson.RawValue) tabular.DataType {
	switch v.Type {
	case bson.TypeDateTime:
		return tabular.TypeDate
	case bson.TypeDouble:
		return tabular.TypeR8
	case bson.TypeBoolean:
		return tabular.TypeBool
	case bson.TypeInt32, bson.TypeInt64:
		return tabular.TypeI8
	}
	return tabular.TypeString
}

// InferColumn builds the column schema for field name from a representative value.
func InferColumn(name string, v bson.RawValue) tabular.ColumnSchema {
	col := tabular.ColumnSchema{Name: name, Type: InferKind(v)}
	if col.Type == tabular.TypeString {
		col.Length = tabular.DefaultStringLength
		col.CodePage = tabular.DefaultCodePage
	}
	return col
}

// IsMissing reports whether v is absent, null or undefined.
func IsMissing(v bson.RawValue) bool {
	switch v.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return true
	}
	return false
}

// ToTabularValue converts a document value to target. Missing values become
// nulls. Failures are conversion errors naming the target kind.
func ToTabularValue(v bson.RawValue, target tabular.DataType) (tabular.Value, error) {
	if IsMissing(v) {
		return tabular.Null(target), nil
	}
	switch {
	case target.IsInteger():
		n, err := toInt64(v)
		if err == nil {
			err = target.CheckRange(n)
		}
		if err != nil {
			return tabular.Value{}, errors.Conversion(target.String(), Text(v), err)
		}
		return tabular.Int(target, n), nil
	case target.IsFloat():
		f, err := toFloat64(v)
		if err != nil {
			return tabular.Value{}, errors.Conversion(target.String(), Text(v), err)
		}
		return tabular.Float(target, f), nil
	case target == tabular.TypeBool:
		b, err := toBool(v)
		if err != nil {
			return tabular.Value{}, errors.Conversion(target.String(), Text(v), err)
		}
		return tabular.Bool(b), nil
	case target.IsDate():
		t, err := toTime(v)
		if err != nil {
			return tabular.Value{}, errors.Conversion(target.String(), Text(v), err)
		}
		return tabular.Time(target, t), nil
	case target == tabular.TypeGUID:
		u, err := toGUID(v)
		if err != nil {
			return tabular.Value{}, errors.Conversion(target.String(), Text(v), err)
		}
		return tabular.GUID(u), nil
	case target.IsBinary():
		if v.Type != bson.TypeBinary {
			return tabular.Value{}, errors.Conversion(target.String(), Text(v), fmt.Errorf("%s is not binary", v.Type))
		}
		_, data := v.Binary()
		return tabular.Bytes(target, append([]byte(nil), data...)), nil
	}
	return tabular.String(target, Text(v)), nil
}

// IsLossyText reports whether converting v to target coerces a non-textual
// value into a character column. Such conversions succeed but deserve a warning.
func IsLossyText(v bson.RawValue, target tabular.DataType) bool {
	if target.IsInteger() || target.IsFloat() || target.IsDate() || target.IsBinary() ||
		target == tabular.TypeBool || target == tabular.TypeGUID {
		return false
	}
	switch v.Type {
	case bson.TypeString, bson.TypeObjectID, bson.TypeSymbol, bson.TypeNull, bson.TypeUndefined, 0:
		return false
	}
	return true
}

// Text renders the textual form of a document value.
func Text(v bson.RawValue) string {
	switch v.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return ""
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeSymbol:
		return v.Symbol()
	case bson.TypeObjectID:
		return v.ObjectID().Hex()
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case bson.TypeDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case bson.TypeBoolean:
		return strconv.FormatBool(v.Boolean())
	case bson.TypeDateTime:
		return time.UnixMilli(v.DateTime()).UTC().Format(time.RFC3339Nano)
	case bson.TypeDecimal128:
		return v.Decimal128().String()
	case bson.TypeBinary:
		subtype, data := v.Binary()
		if subtype == binarySubtypeUUID && len(data) == 16 {
			if u, err := uuid.FromBytes(data); err == nil {
				return u.String()
			}
		}
	case bson.TypeEmbeddedDocument:
		if b, err := bson.MarshalExtJSON(v.Document(), false, false); err == nil {
			return string(b)
		}
	}
	return v.String()
}

// ToDocumentValue converts a typed column value into a document value for a
// column declared as declared. Nulls become an explicit null marker. Kinds with
// no document representation yield an unsupported-type error.
func ToDocumentValue(v tabular.Value, declared tabular.DataType) (interface{}, error) {
	if declared == tabular.TypeNull || declared == tabular.TypeEmpty || v.IsNull() {
		return primitive.Null{}, nil
	}
	mismatch := func() error {
		return errors.Conversion(declared.String(), v.Text(), fmt.Errorf("value of kind %s", v.Type()))
	}
	switch {
	case declared == tabular.TypeBool:
		b, ok := v.BoolValue()
		if !ok {
			return nil, mismatch()
		}
		return b, nil
	case declared.IsDate():
		t, ok := v.TimeValue()
		if !ok {
			return nil, mismatch()
		}
		return primitive.NewDateTimeFromTime(asUTC(t)), nil
	case declared == tabular.TypeGUID:
		b, ok := v.BytesValue()
		if !ok {
			return nil, mismatch()
		}
		return primitive.Binary{Subtype: binarySubtypeUUID, Data: b}, nil
	case declared.IsBinary():
		b, ok := v.BytesValue()
		if !ok {
			return nil, mismatch()
		}
		return primitive.Binary{Data: b}, nil
	case declared.IsFloat():
		f, ok := v.Float64()
		if !ok {
			return nil, mismatch()
		}
		return f, nil
	case declared == tabular.TypeI8 || declared == tabular.TypeUI8:
		n, ok := v.Int64()
		if !ok {
			return nil, mismatch()
		}
		return n, nil
	case declared.IsInteger():
		n, ok := v.Int64()
		if !ok {
			return nil, mismatch()
		}
		err := declared.CheckRange(n)
		if err == nil && (n < math.MinInt32 || n > math.MaxInt32) {
			err = fmt.Errorf("%d does not fit a 32-bit document integer", n)
		}
		if err != nil {
			return nil, errors.Conversion(declared.String(), v.Text(), err)
		}
		return int32(n), nil
	case declared.IsText():
		return v.Text(), nil
	}
	return nil, errors.UnsupportedType(declared.String())
}

// Supported reports whether ToDocumentValue can emit values of kind t.
func Supported(t tabular.DataType) bool {
	return t == tabular.TypeBool || t == tabular.TypeGUID || t == tabular.TypeNull || t == tabular.TypeEmpty ||
		t.IsDate() || t.IsBinary() || t.IsFloat() || t.IsInteger() || t.IsText()
}

// Truncate clamps v to length characters (or bytes).
func Truncate(v tabular.Value, length int) tabular.Value {
	return v.Truncate(length)
}

// asUTC keeps the wall clock of t and labels it UTC.
func asUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func toInt64(v bson.RawValue) (int64, error) {
	switch v.Type {
	case bson.TypeInt32:
		return int64(v.Int32()), nil
	case bson.TypeInt64:
		return v.Int64(), nil
	case bson.TypeDouble:
		return floatToInt(v.Double())
	case bson.TypeBoolean:
		if v.Boolean() {
			return 1, nil
		}
		return 0, nil
	case bson.TypeString:
		return strconv.ParseInt(strings.TrimSpace(v.StringValue()), 10, 64)
	case bson.TypeDecimal128:
		f, err := strconv.ParseFloat(v.Decimal128().String(), 64)
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	}
	return 0, fmt.Errorf("%s is not numeric", v.Type)
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%g is out of range", f)
	}
	return int64(f), nil
}

func toFloat64(v bson.RawValue) (float64, error) {
	switch v.Type {
	case bson.TypeDouble:
		return v.Double(), nil
	case bson.TypeInt32:
		return float64(v.Int32()), nil
	case bson.TypeInt64:
		return float64(v.Int64()), nil
	case bson.TypeBoolean:
		if v.Boolean() {
			return 1, nil
		}
		return 0, nil
	case bson.TypeString:
		return strconv.ParseFloat(strings.TrimSpace(v.StringValue()), 64)
	case bson.TypeDecimal128:
		return strconv.ParseFloat(v.Decimal128().String(), 64)
	}
	return 0, fmt.Errorf("%s is not numeric", v.Type)
}

func toBool(v bson.RawValue) (bool, error) {
	switch v.Type {
	case bson.TypeBoolean:
		return v.Boolean(), nil
	case bson.TypeInt32:
		return v.Int32() != 0, nil
	case bson.TypeInt64:
		return v.Int64() != 0, nil
	case bson.TypeDouble:
		return v.Double() != 0, nil
	case bson.TypeString:
		return strconv.ParseBool(strings.TrimSpace(v.StringValue()))
	}
	return false, fmt.Errorf("%s is not boolean", v.Type)
}

func toTime(v bson.RawValue) (time.Time, error) {
	switch v.Type {
	case bson.TypeDateTime:
		return time.UnixMilli(v.DateTime()).UTC(), nil
	case bson.TypeTimestamp:
		sec, _ := v.Timestamp()
		return time.Unix(int64(sec), 0).UTC(), nil
	case bson.TypeString:
		return tabular.ParseDateTime(v.StringValue(), time.UTC)
	}
	return time.Time{}, fmt.Errorf("%s is not a date", v.Type)
}

func toGUID(v bson.RawValue) (uuid.UUID, error) {
	switch v.Type {
	case bson.TypeBinary:
		_, data := v.Binary()
		return uuid.FromBytes(data)
	case bson.TypeString:
		return uuid.Parse(strings.TrimSpace(v.StringValue()))
	}
	return uuid.UUID{}, fmt.Errorf("%s is not a guid", v.Type)
}
