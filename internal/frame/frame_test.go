package frame

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTableBasics(t *testing.T) {
	tb, err := New("a", "b")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tb.Append([]any{int64(1), "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tb.Append([]any{int64(2), nil}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got := tb.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if !tb.Has("a") || tb.Has("z") {
		t.Fatalf("Has: unexpected column presence")
	}
	v, ok := tb.Value(0, "b")
	if !ok || v != "x" {
		t.Fatalf("Value(0, b) = %v, %v", v, ok)
	}
	if _, ok := tb.Value(0, "z"); ok {
		t.Fatal("Value on unknown column should report false")
	}

	if diff := cmp.Diff([]any{int64(1), int64(2)}, tb.Column("a")); diff != "" {
		t.Fatalf("Column(a) mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New("a", "a"); err == nil {
		t.Fatal("expected error for duplicate column")
	}
}

func TestAppendRejectsWrongWidth(t *testing.T) {
	tb, _ := New("a", "b")
	if err := tb.Append([]any{int64(1)}); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestAddColumn(t *testing.T) {
	tb, _ := New("a")
	_ = tb.Append([]any{int64(1)})
	if err := tb.AddColumn("b", "fill"); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := tb.AddColumn("b", nil); err == nil {
		t.Fatal("expected error re-adding column")
	}
	v, _ := tb.Value(0, "b")
	if v != "fill" {
		t.Fatalf("fill value = %v", v)
	}
}

func TestSortByMultipleKeys(t *testing.T) {
	tb, _ := New("snapshot_id", "pid")
	for _, row := range [][]any{
		{int64(2), int64(10)},
		{int64(1), int64(20)},
		{int64(1), int64(5)},
		{nil, int64(1)},
	} {
		_ = tb.Append(row)
	}
	tb.SortBy("snapshot_id", "pid")

	var got [][]any
	for i := 0; i < tb.Len(); i++ {
		got = append(got, tb.Row(i))
	}
	want := [][]any{
		{nil, int64(1)},
		{int64(1), int64(5)},
		{int64(1), int64(20)},
		{int64(2), int64(10)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sort order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortByMixedNumericEncodings(t *testing.T) {
	tb, _ := New("k")
	_ = tb.Append([]any{float64(3)})
	_ = tb.Append([]any{int64(1)})
	_ = tb.Append([]any{float64(2)})
	tb.SortBy("k")
	if v, _ := tb.Value(0, "k"); v != int64(1) {
		t.Fatalf("first = %v, want int64(1)", v)
	}
	if v, _ := tb.Value(2, "k"); v != float64(3) {
		t.Fatalf("last = %v, want float64(3)", v)
	}
}
