package frame

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLeftJoinSuffixesAndNulls(t *testing.T) {
	left, _ := New("snapshot_id", "pid", "flag")
	_ = left.Append([]any{int64(1), int64(100), "L1"})
	_ = left.Append([]any{int64(2), int64(200), "L2"})

	right, _ := New("snapshot_id", "flag", "extra")
	_ = right.Append([]any{int64(1), "R1", "e1"})

	out, err := LeftJoin(left, right, []string{"snapshot_id"}, "_l", "_r")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}

	wantCols := []string{"snapshot_id", "pid", "flag_l", "flag_r", "extra"}
	if diff := cmp.Diff(wantCols, out.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}

	if v, _ := out.Value(0, "flag_r"); v != "R1" {
		t.Fatalf("matched right cell = %v, want R1", v)
	}
	if v, _ := out.Value(1, "flag_r"); v != nil {
		t.Fatalf("unmatched right cell = %v, want nil", v)
	}
	if v, _ := out.Value(1, "extra"); v != nil {
		t.Fatalf("unmatched extra cell = %v, want nil", v)
	}
}

func TestLeftJoinNilKeyJoinsNothing(t *testing.T) {
	left, _ := New("snapshot_id", "app_group_id")
	_ = left.Append([]any{int64(1), nil})

	right, _ := New("snapshot_id", "app_group_id", "app_name")
	_ = right.Append([]any{int64(1), "g1", "browser"})

	out, err := LeftJoin(left, right, []string{"snapshot_id", "app_group_id"}, "", "_group")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	if v, _ := out.Value(0, "app_name"); v != nil {
		t.Fatalf("app_name = %v, want nil for nil join key", v)
	}
}

func TestLeftJoinMatchesAcrossNumericEncodings(t *testing.T) {
	left, _ := New("snapshot_id")
	_ = left.Append([]any{float64(7)})

	right, _ := New("snapshot_id", "v")
	_ = right.Append([]any{int64(7), "hit"})

	out, err := LeftJoin(left, right, []string{"snapshot_id"}, "", "_r")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	if v, _ := out.Value(0, "v"); v != "hit" {
		t.Fatalf("v = %v, want hit", v)
	}
}

func TestLeftJoinRejectsDuplicateRightKeys(t *testing.T) {
	left, _ := New("k")
	right, _ := New("k", "v")
	_ = right.Append([]any{int64(1), "a"})
	_ = right.Append([]any{int64(1), "b"})

	if _, err := LeftJoin(left, right, []string{"k"}, "", "_r"); err == nil {
		t.Fatal("expected error for duplicate right keys")
	}
}

func TestLeftJoinMissingJoinColumn(t *testing.T) {
	left, _ := New("a")
	right, _ := New("b")
	if _, err := LeftJoin(left, right, []string{"k"}, "", ""); err == nil {
		t.Fatal("expected error for missing join column")
	}
}
