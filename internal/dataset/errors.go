package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// SampleLimit caps how many offending keys or raw values an error message
// carries. Validation scans the whole table but reports only the first few.
const SampleLimit = 5

// StoreNotFoundError reports that the snapshot store path does not exist.
type StoreNotFoundError struct {
	Path string
}

func (e *StoreNotFoundError) Error() string {
	return fmt.Sprintf("snapshot store not found: %s", e.Path)
}

// SchemaError reports required columns missing from a table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q is missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// IntegrityError reports duplicate keys, dangling references or null key
// columns. Samples holds at most SampleLimit offending keys.
type IntegrityError struct {
	Table   string
	Key     []string
	Reason  string
	Samples []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("table %q: %s (key %s): %s",
		e.Table, e.Reason, strings.Join(e.Key, ", "), strings.Join(e.Samples, "; "))
}

// CoercionError reports cell values that cannot be interpreted under the
// declared column type. Samples holds at most SampleLimit raw values.
type CoercionError struct {
	Table   string
	Column  string
	Samples []string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q in table %q contains uncoercible values: %s",
		e.Column, e.Table, strings.Join(e.Samples, ", "))
}

// NonFiniteError reports infinite values in a numeric column. Rows holds the
// offending row positions, at most SampleLimit of them.
type NonFiniteError struct {
	Table  string
	Column string
	Rows   []int
}

func (e *NonFiniteError) Error() string {
	parts := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		parts[i] = fmt.Sprint(r)
	}
	return fmt.Sprintf("column %q in table %q contains non-finite values at rows: %s",
		e.Column, e.Table, strings.Join(parts, ", "))
}

// EmptyInputError reports that the feature builder was given nothing to work
// with: an empty flattened table, a missing group key column, or no row with
// a usable target.
type EmptyInputError struct {
	Reason string
}

func (e *EmptyInputError) Error() string { return e.Reason }

// TooSmallError reports that a store holds fewer rows than the configured
// training minimums.
type TooSmallError struct {
	Shortfalls []string
}

func (e *TooSmallError) Error() string {
	return "dataset below training minimums: " + strings.Join(e.Shortfalls, "; ")
}

// IsStoreNotFound reports whether err indicates a missing store path.
func IsStoreNotFound(err error) bool {
	var e *StoreNotFoundError
	return errors.As(err, &e)
}

// IsSchema reports whether err is a missing-column schema error.
func IsSchema(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// IsIntegrity reports whether err is a key or referential integrity error.
func IsIntegrity(err error) bool {
	var e *IntegrityError
	return errors.As(err, &e)
}

// IsCoercion reports whether err is a value coercion error.
func IsCoercion(err error) bool {
	var e *CoercionError
	return errors.As(err, &e)
}

// IsNonFinite reports whether err is a non-finite numeric value error.
func IsNonFinite(err error) bool {
	var e *NonFiniteError
	return errors.As(err, &e)
}

// IsEmptyInput reports whether err is an empty-input error from the feature
// builder.
func IsEmptyInput(err error) bool {
	var e *EmptyInputError
	return errors.As(err, &e)
}

// IsTooSmall reports whether err is a dataset size validation error.
func IsTooSmall(err error) bool {
	var e *TooSmallError
	return errors.As(err, &e)
}
