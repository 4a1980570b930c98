package tabular

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006",
}

// ParseDateTime parses a calendar date/time literal. Literals without a zone
// are interpreted in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", s)
}

// ParseText converts the textual form of a value into a Value of kind t.
// Empty text yields a null.
func ParseText(s string, t DataType) (Value, error) {
	if s == "" {
		return Null(t), nil
	}
	switch {
	case t.IsInteger():
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, err
		}
		if err := t.CheckRange(n); err != nil {
			return Value{}, err
		}
		return Int(t, n), nil
	case t.IsFloat() || t == TypeCurrency:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Value{}, err
		}
		return Float(t, f), nil
	case t == TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case t.IsDate():
		tm, err := ParseDateTime(s, time.UTC)
		if err != nil {
			return Value{}, err
		}
		return Time(t, tm), nil
	case t == TypeGUID:
		u, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return Value{}, err
		}
		return GUID(u), nil
	case t.IsBinary():
		b, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return Value{}, err
		}
		return Bytes(t, b), nil
	case t == TypeNull || t == TypeEmpty:
		return Null(t), nil
	}
	return String(t, s), nil
}
