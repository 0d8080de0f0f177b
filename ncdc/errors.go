package ncdc

import (
	"fmt"
	"math"
)

// SchemaError signals that a required field is missing or malformed at record
// build time. No partially built Record is ever returned alongside it.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("schema: required field %q is missing", e.Field)
	}
	return fmt.Sprintf("schema: field %q: %s", e.Field, e.Reason)
}

// ParseError signals that a field's raw text cannot be coerced to its
// declared type. It always names the offending field and carries the raw
// value verbatim.
type ParseError struct {
	Field string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: field %q: cannot convert %q: %v", e.Field, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyDataError signals that an operation requires at least one row or
// determinant but found none.
type EmptyDataError struct {
	What string
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("empty data: no %s", e.What)
}

// InvalidRangeError signals that a supplied depth or numeric range is
// inverted or non-finite.
type InvalidRangeError struct {
	Low, High float64
}

func (e *InvalidRangeError) Error() string {
	if math.IsNaN(e.Low) || math.IsNaN(e.High) || math.IsInf(e.Low, 0) || math.IsInf(e.High, 0) {
		return fmt.Sprintf("invalid range: bounds [%v, %v] are not finite", e.Low, e.High)
	}
	return fmt.Sprintf("invalid range: lower bound %v exceeds upper bound %v", e.Low, e.High)
}

// KeyMismatchError signals that a keyed override does not match any existing
// entity, e.g. a reservoir-correction override naming an unknown labcode.
type KeyMismatchError struct {
	Key string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("key mismatch: %q does not match any determinant", e.Key)
}
