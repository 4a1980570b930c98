package errors

// Detail keys attached by the domain constructors.
const (
	DetailColumn     = "column"
	DetailCollection = "collection"
	DetailKind       = "kind"
	DetailValue      = "value"
)

// EmptyCollection reports that a collection holds no documents to sample.
func EmptyCollection(collection string) *Error {
	e := Newf(ErrorTypeNotFound, "collection %q has no documents", collection)
	e.Stack = captureStack(2)
	return e.WithDetail(DetailCollection, collection)
}

// UnknownColumn reports a column name that is not part of the output schema.
func UnknownColumn(name string) *Error {
	e := Newf(ErrorTypeConfig, "column %q is not part of the output schema", name)
	e.Stack = captureStack(2)
	return e.WithDetail(DetailColumn, name)
}

// UnsupportedType reports a column kind that has no document representation.
func UnsupportedType(kind string) *Error {
	e := Newf(ErrorTypeUnsupportedType, "data type %s is not supported", kind)
	e.Stack = captureStack(2)
	return e.WithDetail(DetailKind, kind)
}

// Conversion reports a value that could not be converted to kind.
func Conversion(kind string, value string, cause error) *Error {
	e := &Error{
		Type:    ErrorTypeConversion,
		Message: "cannot convert " + quote(value) + " to " + kind,
		Cause:   cause,
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailKind, kind).WithDetail(DetailValue, value)
}

// Truncation reports a value longer than the declared column length.
func Truncation(column string, length, actual int) *Error {
	e := Newf(ErrorTypeTruncation, "value of length %d exceeds declared length %d", actual, length)
	e.Stack = captureStack(2)
	return e.WithDetail(DetailColumn, column)
}

// Parse reports condition text that could not be parsed for kind.
func Parse(text, kind string, cause error) *Error {
	e := &Error{
		Type:    ErrorTypeConfig,
		Message: "cannot parse condition value " + quote(text) + " as " + kind,
		Cause:   cause,
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailKind, kind).WithDetail(DetailValue, text)
}

// ForColumn wraps cause as a fatal column-level failure.
func ForColumn(column string, cause error) *Error {
	e := &Error{
		Type:    ErrorTypeData,
		Message: "there was an issue with column " + quote(column),
		Cause:   cause,
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailColumn, column)
}

// Column returns the column name recorded on err, if any.
func Column(err error) (string, bool) {
	v, ok := Detail(err, DetailColumn)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func quote(s string) string {
	return "'" + s + "'"
}
