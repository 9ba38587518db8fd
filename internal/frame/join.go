package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// LeftJoin joins every row of left against at most one row of right on the
// given key columns. Result columns are the left columns followed by the
// right non-key columns; a name carried by both sides is disambiguated with
// leftSuffix/rightSuffix (key columns keep their plain name). Left rows whose
// key is nil, or has no match in right, receive nil cells for every right
// column. Right must be unique on the key columns.
func LeftJoin(left, right *Table, on []string, leftSuffix, rightSuffix string) (*Table, error) {
	for _, k := range on {
		if !left.Has(k) {
			return nil, fmt.Errorf("frame: left table missing join column %q", k)
		}
		if !right.Has(k) {
			return nil, fmt.Errorf("frame: right table missing join column %q", k)
		}
	}

	keySet := make(map[string]bool, len(on))
	for _, k := range on {
		keySet[k] = true
	}

	// Right columns that survive into the result, in declared order.
	var rightCols []string
	for _, c := range right.cols {
		if !keySet[c] {
			rightCols = append(rightCols, c)
		}
	}

	collides := make(map[string]bool)
	for _, c := range rightCols {
		if left.Has(c) {
			collides[c] = true
		}
	}

	outCols := make([]string, 0, len(left.cols)+len(rightCols))
	for _, c := range left.cols {
		if collides[c] {
			outCols = append(outCols, c+leftSuffix)
		} else {
			outCols = append(outCols, c)
		}
	}
	for _, c := range rightCols {
		if collides[c] {
			outCols = append(outCols, c+rightSuffix)
		} else {
			outCols = append(outCols, c)
		}
	}

	out, err := New(outCols...)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		k, ok := rowKey(right, i, on)
		if !ok {
			continue
		}
		if _, dup := lookup[k]; dup {
			return nil, fmt.Errorf("frame: right table not unique on join key %v", on)
		}
		lookup[k] = i
	}

	for i := 0; i < left.Len(); i++ {
		row := make([]any, 0, len(outCols))
		row = append(row, left.Row(i)...)

		match := -1
		if k, ok := rowKey(left, i, on); ok {
			if r, hit := lookup[k]; hit {
				match = r
			}
		}
		for _, c := range rightCols {
			if match < 0 {
				row = append(row, nil)
				continue
			}
			v, _ := right.Value(match, c)
			row = append(row, v)
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rowKey builds a composite lookup key for the given columns. The second
// return is false when any key cell is nil, which means the row joins to
// nothing.
func rowKey(t *Table, row int, on []string) (string, bool) {
	parts := make([]string, 0, len(on))
	for _, c := range on {
		v, _ := t.Value(row, c)
		if v == nil {
			return "", false
		}
		parts = append(parts, keyString(v))
	}
	return strings.Join(parts, "\x00"), true
}

// keyString normalizes a key cell so that int64 and float64 encodings of the
// same identifier compare equal.
func keyString(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
