package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"taskrank/internal/frame"
)

// Tri is a three-valued boolean: true, false, or unknown (missing).
// Unknown is distinct from false everywhere except the feature projection,
// which documents the unknown→0 fill.
type Tri int8

const (
	TriUnknown Tri = iota
	TriFalse
	TriTrue
)

// Int64 projects the tri-state to 0/1 with unknown treated as 0.
func (t Tri) Int64() int64 {
	if t == TriTrue {
		return 1
	}
	return 0
}

func (t Tri) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	}
	return "unknown"
}

// coerceTri maps one raw cell into the closed tri-state domain. Accepted
// encodings: nil (unknown), bool, 0/1 integers, 0.0/1.0 floats and the
// strings "0"/"1" (case/whitespace-insensitive). Anything else is rejected.
func coerceTri(v any) (Tri, bool) {
	switch x := v.(type) {
	case nil:
		return TriUnknown, true
	case bool:
		if x {
			return TriTrue, true
		}
		return TriFalse, true
	case int64:
		switch x {
		case 0:
			return TriFalse, true
		case 1:
			return TriTrue, true
		}
	case float64:
		switch x {
		case 0.0:
			return TriFalse, true
		case 1.0:
			return TriTrue, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "0":
			return TriFalse, true
		case "1":
			return TriTrue, true
		}
	}
	return TriUnknown, false
}

// coerceStringList decodes a serialized array cell into []string. A nil or
// blank cell decodes to an empty list. Elements must be scalars; nested
// arrays or objects are rejected with the offending elements reported.
func coerceStringList(v any) ([]string, []string) {
	elems, bad := decodeList(v)
	if bad != nil {
		return nil, bad
	}
	out := make([]string, 0, len(elems))
	var invalid []string
	for _, e := range elems {
		switch x := e.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, trimFloat(x))
		case bool:
			out = append(out, fmt.Sprint(x))
		default:
			invalid = append(invalid, fmt.Sprintf("%v", e))
		}
	}
	if invalid != nil {
		return nil, invalid
	}
	return out, nil
}

// coerceIntList decodes a serialized array cell into []int64. Elements must
// be integers; fractional numbers and non-numeric values are rejected.
func coerceIntList(v any) ([]int64, []string) {
	elems, bad := decodeList(v)
	if bad != nil {
		return nil, bad
	}
	out := make([]int64, 0, len(elems))
	var invalid []string
	for _, e := range elems {
		f, ok := e.(float64)
		if !ok || f != math.Trunc(f) {
			invalid = append(invalid, fmt.Sprintf("%v", e))
			continue
		}
		out = append(out, int64(f))
	}
	if invalid != nil {
		return nil, invalid
	}
	return out, nil
}

// decodeList parses the raw cell into JSON array elements. The second
// return carries the offending raw value when the cell is not an array.
func decodeList(v any) ([]any, []string) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(x), &parsed); err != nil {
			return nil, []string{x}
		}
		list, ok := parsed.([]any)
		if !ok {
			return nil, []string{x}
		}
		return list, nil
	}
	return nil, []string{fmt.Sprintf("%v", v)}
}

// coerceScalar normalizes a scalar cell for its declared kind. Scalar kinds
// never reject: SQLite's dynamic typing means an INTEGER column can hold a
// REAL and vice versa, and the original data carries both encodings.
func coerceScalar(kind Kind, v any) any {
	switch kind {
	case KindInt:
		if f, ok := v.(float64); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f)
		}
	case KindFloat:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	}
	return v
}

// trimFloat renders a JSON number the way the source system serialized it:
// integral values without an exponent or trailing fraction.
func trimFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// coerceTable applies the schema's coercion rules to every declared column
// present in the table, in place.
func coerceTable(t *frame.Table, schema TableSchema) error {
	for _, spec := range schema.Columns {
		if !t.Has(spec.Name) {
			continue
		}
		switch spec.Kind {
		case KindBool:
			if err := coerceTriColumn(t, schema.Table, spec.Name); err != nil {
				return err
			}
		case KindStringList:
			if err := coerceListColumn(t, schema.Table, spec.Name, false); err != nil {
				return err
			}
		case KindIntList:
			if err := coerceListColumn(t, schema.Table, spec.Name, true); err != nil {
				return err
			}
		default:
			for i := 0; i < t.Len(); i++ {
				v, _ := t.Value(i, spec.Name)
				if v == nil {
					continue
				}
				t.Set(i, spec.Name, coerceScalar(spec.Kind, v))
			}
		}
	}
	return nil
}

func coerceTriColumn(t *frame.Table, table, col string) error {
	var invalid []string
	for i := 0; i < t.Len(); i++ {
		v, _ := t.Value(i, col)
		tri, ok := coerceTri(v)
		if !ok {
			if len(invalid) < SampleLimit {
				invalid = append(invalid, fmt.Sprintf("%#v", v))
			}
			continue
		}
		t.Set(i, col, tri)
	}
	if invalid != nil {
		return &CoercionError{Table: table, Column: col, Samples: invalid}
	}
	return nil
}

func coerceListColumn(t *frame.Table, table, col string, ints bool) error {
	var invalid []string
	for i := 0; i < t.Len(); i++ {
		v, _ := t.Value(i, col)
		var bad []string
		if ints {
			var parsed []int64
			parsed, bad = coerceIntList(v)
			if bad == nil {
				t.Set(i, col, parsed)
			}
		} else {
			var parsed []string
			parsed, bad = coerceStringList(v)
			if bad == nil {
				t.Set(i, col, parsed)
			}
		}
		for _, b := range bad {
			if len(invalid) < SampleLimit {
				invalid = append(invalid, b)
			}
		}
	}
	if invalid != nil {
		return &CoercionError{Table: table, Column: col, Samples: invalid}
	}
	return nil
}

// checkFinite scans every column of the table for infinite float cells.
// The first offending column (in declared order) is reported with up to
// SampleLimit row positions.
func checkFinite(t *frame.Table, table string) error {
	for _, col := range t.Columns() {
		var rows []int
		for i := 0; i < t.Len(); i++ {
			v, _ := t.Value(i, col)
			if f, ok := v.(float64); ok && math.IsInf(f, 0) {
				if len(rows) < SampleLimit {
					rows = append(rows, i)
				}
			}
		}
		if rows != nil {
			return &NonFiniteError{Table: table, Column: col, Rows: rows}
		}
	}
	return nil
}
