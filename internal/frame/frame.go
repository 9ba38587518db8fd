// Package frame provides a small ordered, column-addressed, in-memory table.
// It is the working representation for snapshot tables between the store and
// the feature builder: columns keep their declared order, cells are untyped,
// and a missing value is a nil cell.
package frame

import (
	"fmt"
	"sort"
	"strconv"
)

// Table is an ordered collection of named columns over untyped rows.
// The zero value is not usable; construct with New.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty table with the given column order.
// Duplicate column names are rejected.
func New(cols ...string) (*Table, error) {
	t := &Table{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", c)
		}
		t.index[c] = i
	}
	return t, nil
}

// Columns returns the column names in declared order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// Has reports whether the table declares the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Append adds one row. The row length must match the column count.
func (t *Table) Append(row []any) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("frame: row has %d cells, table has %d columns", len(row), len(t.cols))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Value returns the cell at (row, col). The second return is false when the
// column does not exist; an out-of-range row panics like a slice access.
func (t *Table) Value(row int, col string) (any, bool) {
	i, ok := t.index[col]
	if !ok {
		return nil, false
	}
	return t.rows[row][i], true
}

// Set overwrites the cell at (row, col) and reports whether the column exists.
func (t *Table) Set(row int, col string, v any) bool {
	i, ok := t.index[col]
	if !ok {
		return false
	}
	t.rows[row][i] = v
	return true
}

// Column returns all cells of the named column in row order, or nil when the
// column does not exist.
func (t *Table) Column(col string) []any {
	i, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]any, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// Row returns the cells of row i in column order. The slice is shared with
// the table; callers must not mutate it.
func (t *Table) Row(i int) []any { return t.rows[i] }

// AddColumn appends a new column filled with the given value for every
// existing row. Adding an already-declared column is an error.
func (t *Table) AddColumn(col string, fill any) error {
	if _, dup := t.index[col]; dup {
		return fmt.Errorf("frame: column %q already exists", col)
	}
	t.index[col] = len(t.cols)
	t.cols = append(t.cols, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
	return nil
}

// SortBy stable-sorts rows ascending by the given columns. Unknown columns
// are ignored so callers can sort by keys that may be absent in an empty
// result. Nil cells order before everything else.
func (t *Table) SortBy(cols ...string) {
	var idx []int
	for _, c := range cols {
		if i, ok := t.index[c]; ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, i := range idx {
			switch c := compareCells(t.rows[a][i], t.rows[b][i]); {
			case c < 0:
				return true
			case c > 0:
				return false
			}
		}
		return false
	})
}

// compareCells orders nil first, then numbers, then strings, then everything
// else by its formatted representation.
func compareCells(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	if aNum != bNum {
		if aNum {
			return -1
		}
		return 1
	}
	as, bs := cellString(a), cellString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}
