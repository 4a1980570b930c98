package typemap

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

func raw(t *testing.T, v interface{}) bson.RawValue {
	t.Helper()
	doc, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	require.NoError(t, err)
	return bson.Raw(doc).Lookup("v")
}

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   tabular.DataType
		length int
	}{
		{"datetime", primitive.NewDateTimeFromTime(time.Now()), tabular.TypeDate, 0},
		{"double", 2.5, tabular.TypeR8, 0},
		{"bool", true, tabular.TypeBool, 0},
		{"int32", int32(1), tabular.TypeI8, 0},
		{"int64", int64(1), tabular.TypeI8, 0},
		{"string", "x", tabular.TypeString, 256},
		{"objectid", primitive.NewObjectID(), tabular.TypeString, 256},
		{"document", bson.D{{Key: "a", Value: 1}}, tabular.TypeString, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := InferColumn("f", raw(t, tt.value))
			assert.Equal(t, "f", col.Name)
			assert.Equal(t, tt.want, col.Type)
			assert.Equal(t, tt.length, col.Length)
			if tt.want == tabular.TypeString {
				assert.Equal(t, 1252, col.CodePage)
			} else {
				assert.Zero(t, col.CodePage)
			}
		})
	}
}

func TestToTabularValue(t *testing.T) {
	when := time.Date(2013, 6, 11, 12, 51, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	tests := []struct {
		name   string
		value  interface{}
		target tabular.DataType
		want   tabular.Value
	}{
		{"int32 to i8", int32(7), tabular.TypeI8, tabular.Int(tabular.TypeI8, 7)},
		{"numeric string to i8", "123", tabular.TypeI8, tabular.Int(tabular.TypeI8, 123)},
		{"double to i4 truncates", 9.9, tabular.TypeI4, tabular.Int(tabular.TypeI4, 9)},
		{"int to r8", int64(3), tabular.TypeR8, tabular.Float(tabular.TypeR8, 3)},
		{"string to r8", "2.5", tabular.TypeR8, tabular.Float(tabular.TypeR8, 2.5)},
		{"bool", true, tabular.TypeBool, tabular.Bool(true)},
		{"datetime", primitive.NewDateTimeFromTime(when), tabular.TypeDate, tabular.Time(tabular.TypeDate, when)},
		{"date string", "2013-06-11 12:51", tabular.TypeDBTimestamp, tabular.Time(tabular.TypeDBTimestamp, when)},
		{"objectid to str", oid, tabular.TypeString, tabular.String(tabular.TypeString, oid.Hex())},
		{"int to str", int32(5), tabular.TypeWString, tabular.String(tabular.TypeWString, "5")},
		{"null", nil, tabular.TypeI8, tabular.Null(tabular.TypeI8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTabularValue(raw(t, tt.value), tt.target)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %q", got.Text())
		})
	}
}

func TestToTabularValueMissingField(t *testing.T) {
	empty, err := bson.Marshal(bson.D{})
	require.NoError(t, err)
	got, err := ToTabularValue(bson.Raw(empty).Lookup("nope"), tabular.TypeI8)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestToTabularValueConversionErrors(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		target tabular.DataType
	}{
		{"non numeric string to i8", "abc", tabular.TypeI8},
		{"overflow i1", int32(300), tabular.TypeI1},
		{"negative ui4", int32(-1), tabular.TypeUI4},
		{"string to r8", "x1", tabular.TypeR8},
		{"bad date", "yesterdayish", tabular.TypeDate},
		{"document to bool", bson.D{{Key: "a", Value: 1}}, tabular.TypeBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToTabularValue(raw(t, tt.value), tt.target)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConversion))
		})
	}
}

func TestIsLossyText(t *testing.T) {
	assert.True(t, IsLossyText(raw(t, int32(1)), tabular.TypeString))
	assert.True(t, IsLossyText(raw(t, bson.D{{Key: "a", Value: 1}}), tabular.TypeString))
	assert.False(t, IsLossyText(raw(t, "s"), tabular.TypeString))
	assert.False(t, IsLossyText(raw(t, primitive.NewObjectID()), tabular.TypeString))
	assert.False(t, IsLossyText(raw(t, int32(1)), tabular.TypeI8))
}

func TestTextOfDocument(t *testing.T) {
	s := Text(raw(t, bson.D{{Key: "b1", Value: "x"}}))
	assert.Contains(t, s, `"b1"`)
	assert.Contains(t, s, `"x"`)
}

func TestToDocumentValue(t *testing.T) {
	local := time.Date(2013, 6, 11, 12, 51, 0, 0, time.FixedZone("X", 3600))
	id := uuid.New()

	tests := []struct {
		name     string
		value    tabular.Value
		declared tabular.DataType
		want     interface{}
	}{
		{"bool", tabular.Bool(true), tabular.TypeBool, true},
		{"date keeps wall clock as utc", tabular.Time(tabular.TypeDBTimestamp, local), tabular.TypeDBTimestamp,
			primitive.NewDateTimeFromTime(time.Date(2013, 6, 11, 12, 51, 0, 0, time.UTC))},
		{"guid", tabular.GUID(id), tabular.TypeGUID, primitive.Binary{Subtype: 0x04, Data: id[:]}},
		{"bytes", tabular.Bytes(tabular.TypeBytes, []byte{1}), tabular.TypeBytes, primitive.Binary{Data: []byte{1}}},
		{"numeric", tabular.Float(tabular.TypeNumeric, 1.5), tabular.TypeNumeric, 1.5},
		{"decimal from int", tabular.Int(tabular.TypeDecimal, 2), tabular.TypeDecimal, 2.0},
		{"i4", tabular.Int(tabular.TypeI4, 5), tabular.TypeI4, int32(5)},
		{"ui2", tabular.Int(tabular.TypeUI2, 5), tabular.TypeUI2, int32(5)},
		{"i8", tabular.Int(tabular.TypeI8, 5), tabular.TypeI8, int64(5)},
		{"ui8", tabular.Int(tabular.TypeUI8, 5), tabular.TypeUI8, int64(5)},
		{"wstr", tabular.String(tabular.TypeWString, "x"), tabular.TypeWString, "x"},
		{"null value", tabular.Null(tabular.TypeI4), tabular.TypeI4, primitive.Null{}},
		{"empty kind", tabular.String(tabular.TypeString, "x"), tabular.TypeEmpty, primitive.Null{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDocumentValue(tt.value, tt.declared)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToDocumentValueOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		value    tabular.Value
		declared tabular.DataType
	}{
		{"ui4 above int32", tabular.Int(tabular.TypeUI4, 3000000000), tabular.TypeUI4},
		{"i4 above int32", tabular.Int(tabular.TypeI4, 1<<40), tabular.TypeI4},
		{"i1 above int8", tabular.Int(tabular.TypeI1, 200), tabular.TypeI1},
		{"ui2 negative", tabular.Int(tabular.TypeUI2, -1), tabular.TypeUI2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDocumentValue(tt.value, tt.declared)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConversion))
		})
	}

	got, err := ToDocumentValue(tabular.Int(tabular.TypeUI4, math.MaxInt32), tabular.TypeUI4)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), got)
}

func TestToDocumentValueUnsupported(t *testing.T) {
	_, err := ToDocumentValue(tabular.Float(tabular.TypeCurrency, 1), tabular.TypeCurrency)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType))
	assert.Contains(t, err.Error(), "cy")
	assert.False(t, Supported(tabular.TypeCurrency))
	assert.True(t, Supported(tabular.TypeNText))
}

func TestDateRoundTrip(t *testing.T) {
	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, err := ToDocumentValue(tabular.Time(tabular.TypeDate, when), tabular.TypeDate)
	require.NoError(t, err)

	back, err := ToTabularValue(raw(t, doc), tabular.TypeDate)
	require.NoError(t, err)
	got, ok := back.TimeValue()
	require.True(t, ok)
	assert.True(t, when.Equal(got))
}

func TestTruncate(t *testing.T) {
	v := Truncate(tabular.String(tabular.TypeString, "abcdef"), 3)
	assert.Equal(t, "abc", v.Text())
}
