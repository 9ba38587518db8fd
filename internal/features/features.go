// Package features projects the flattened training table into a fixed-shape
// feature matrix for a listwise ranking trainer: numeric columns, boolean
// columns as 0/1 integers, categorical columns as strings, plus the target
// vector, the per-row ranking group (snapshot_id) and the positions of the
// categorical columns.
package features

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"taskrank/internal/dataset"
	"taskrank/internal/frame"
)

// NumericColumns is the fixed numeric feature contract: process usage,
// system-wide metrics, then group aggregates. Columns absent from the input
// are synthesized as zero.
var NumericColumns = []string{
	// process metrics
	"cpu_share_1s",
	"cpu_share_10s",
	"io_read_bytes",
	"io_write_bytes",
	"rss_mb",
	"swap_mb",
	"voluntary_ctx",
	"involuntary_ctx",
	"nice",
	"ionice_class",
	"ionice_prio",
	// system-wide metrics
	"load_avg_one",
	"load_avg_five",
	"load_avg_fifteen",
	"mem_used_kb",
	"mem_available_kb",
	"mem_total_kb",
	"swap_total_kb",
	"swap_used_kb",
	"time_since_last_input_ms",
	"cpu_user",
	"cpu_system",
	"cpu_idle",
	"cpu_iowait",
	"psi_cpu_some_avg10",
	"psi_cpu_some_avg60",
	"psi_io_some_avg10",
	"psi_mem_some_avg10",
	"psi_mem_full_avg10",
	// group aggregates
	"total_cpu_share",
	"total_io_read_bytes",
	"total_io_write_bytes",
	"total_rss_mb",
}

// BoolColumns is the fixed three-valued-boolean feature contract, projected
// to 0/1 with unknown as 0.
var BoolColumns = []string{
	"user_active",
	"bad_responsiveness",
	"has_tty",
	"has_gui_window",
	"is_focused_window",
	"env_has_display",
	"env_has_wayland",
	"env_ssh",
	"is_audio_client",
	"has_active_stream",
	"has_gui_window_group",
	"is_focused_group",
}

// CategoricalColumns is the fixed categorical feature contract, in the
// order the trainer marks them non-numeric. tags_joined is synthesized from
// the tags list.
var CategoricalColumns = []string{
	"process_type",
	"app_name",
	"priority_class",
	"teacher_priority_class",
	"env_term",
	"tags_joined",
}

// Target candidate columns in precedence order: the supervisory teacher
// score wins over the measured responsiveness outcome.
var targetColumns = []string{"teacher_score", "responsiveness_score"}

// TagSeparator joins the sorted tag list into the tags_joined categorical
// value.
const TagSeparator = "|"

// Unknown is the placeholder for missing categorical values, including an
// empty tag list.
const Unknown = "unknown"

// Matrix is the model-ready projection of the flattened table. All slices
// and the feature table have the same row count.
type Matrix struct {
	X          *frame.Table
	Target     []float64
	GroupID    []int64
	CatIndices []int
}

// Build projects the flattened table into a Matrix. Rows with neither
// target candidate present are dropped; if none survive, or the input is
// empty, or snapshot_id is missing, Build fails with an empty-input error.
func Build(flat *frame.Table) (*Matrix, error) {
	if flat == nil || flat.Len() == 0 {
		return nil, &dataset.EmptyInputError{Reason: "flattened snapshot table is empty"}
	}
	if !flat.Has("snapshot_id") {
		return nil, &dataset.EmptyInputError{Reason: "flattened table has no snapshot_id column for ranking groups"}
	}

	var (
		keep    []int
		targets []float64
	)
	for i := 0; i < flat.Len(); i++ {
		if y, ok := rowTarget(flat, i); ok {
			keep = append(keep, i)
			targets = append(targets, y)
		}
	}
	if len(keep) == 0 {
		return nil, &dataset.EmptyInputError{Reason: "no row carries teacher_score or responsiveness_score"}
	}

	cols := make([]string, 0, len(NumericColumns)+len(BoolColumns)+len(CategoricalColumns))
	cols = append(cols, NumericColumns...)
	cols = append(cols, BoolColumns...)
	cols = append(cols, CategoricalColumns...)
	x, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}

	groupID := make([]int64, 0, len(keep))
	for _, r := range keep {
		row := make([]any, 0, len(cols))
		for _, c := range NumericColumns {
			row = append(row, numericCell(flat, r, c))
		}
		for _, c := range BoolColumns {
			row = append(row, boolCell(flat, r, c))
		}
		for _, c := range CategoricalColumns {
			if c == "tags_joined" {
				joined, err := joinedTags(flat, r)
				if err != nil {
					return nil, err
				}
				row = append(row, joined)
				continue
			}
			row = append(row, categoricalCell(flat, r, c))
		}
		if err := x.Append(row); err != nil {
			return nil, err
		}
		sid, _ := flat.Value(r, "snapshot_id")
		groupID = append(groupID, asInt64(sid))
	}

	catIdx := make([]int, len(CategoricalColumns))
	for i := range CategoricalColumns {
		catIdx[i] = len(NumericColumns) + len(BoolColumns) + i
	}

	return &Matrix{X: x, Target: targets, GroupID: groupID, CatIndices: catIdx}, nil
}

// rowTarget evaluates the target candidates in precedence order.
func rowTarget(t *frame.Table, row int) (float64, bool) {
	for _, c := range targetColumns {
		if !t.Has(c) {
			continue
		}
		v, _ := t.Value(row, c)
		if f, ok := asFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// numericCell reads one numeric feature. Absent columns, nil cells and
// unparseable values all become zero; zero is the documented default.
func numericCell(t *frame.Table, row int, col string) float64 {
	if !t.Has(col) {
		return 0
	}
	v, _ := t.Value(row, col)
	f, ok := asFloat(v)
	if !ok {
		return 0
	}
	return f
}

// boolCell projects a three-valued boolean feature to 0/1, unknown as 0.
func boolCell(t *frame.Table, row int, col string) int64 {
	if !t.Has(col) {
		return 0
	}
	v, _ := t.Value(row, col)
	switch x := v.(type) {
	case dataset.Tri:
		return x.Int64()
	case bool:
		if x {
			return 1
		}
	case int64:
		if x == 1 {
			return 1
		}
	case float64:
		if x == 1.0 {
			return 1
		}
	}
	return 0
}

// categoricalCell reads one categorical feature, defaulting missing values
// to the unknown placeholder.
func categoricalCell(t *frame.Table, row int, col string) string {
	if !t.Has(col) {
		return Unknown
	}
	v, _ := t.Value(row, col)
	switch x := v.(type) {
	case nil:
		return Unknown
	case string:
		return x
	case dataset.Tri:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return Unknown
}

// joinedTags renders the row's tag list as a deterministic categorical
// value: tags sorted lexically and joined with TagSeparator, duplicates
// preserved. Empty or absent lists render as the unknown placeholder. A
// non-list tag cell is a coercion error; the loader never produces one, so
// hitting this means the caller bypassed validation.
func joinedTags(t *frame.Table, row int) (string, error) {
	if !t.Has("tags") {
		return Unknown, nil
	}
	v, _ := t.Value(row, "tags")
	if v == nil {
		return Unknown, nil
	}
	tags, ok := v.([]string)
	if !ok {
		return "", &dataset.CoercionError{
			Table:   "flattened",
			Column:  "tags",
			Samples: []string{stringify(v)},
		}
	}
	if len(tags) == 0 {
		return Unknown, nil
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, TagSeparator), nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i
		}
	}
	return 0
}

func stringify(v any) string {
	return fmt.Sprintf("%#v", v)
}
