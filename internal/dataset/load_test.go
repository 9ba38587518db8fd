package dataset

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"taskrank/internal/frame"
	"taskrank/internal/store"
)

func mkTable(t *testing.T, cols []string, rows ...[]any) *frame.Table {
	t.Helper()
	tb, err := frame.New(cols...)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	for _, r := range rows {
		if err := tb.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return tb
}

func snapshotsFixture(t *testing.T, ids ...int64) *frame.Table {
	t.Helper()
	tb := mkTable(t, []string{"snapshot_id", "timestamp", "responsiveness_score"})
	for _, id := range ids {
		_ = tb.Append([]any{id, "2026-08-20T10:00:00Z", 0.5})
	}
	return tb
}

func emptyAppGroups(t *testing.T) *frame.Table {
	t.Helper()
	return mkTable(t, []string{"snapshot_id", "app_group_id"})
}

func TestLoadStoreNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.db"))
	if !IsStoreNotFound(err) {
		t.Fatalf("err = %v, want StoreNotFoundError", err)
	}
}

func TestLoadBasicScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	st, err := store.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.InsertRows(store.TableSnapshots, []map[string]any{
		{"snapshot_id": 1, "timestamp": "2026-08-20T10:00:00Z", "load_avg_one": 0.7},
	}); err != nil {
		t.Fatalf("insert snapshots: %v", err)
	}
	if err := st.InsertRows(store.TableProcesses, []map[string]any{
		{"snapshot_id": 1, "pid": 100, "teacher_score": 0.8, "has_tty": 1},
	}); err != nil {
		t.Fatalf("insert processes: %v", err)
	}
	if err := st.InsertRows(store.TableAppGroups, []map[string]any{
		{"snapshot_id": 1, "app_group_id": "g1", "app_name": "browser"},
	}); err != nil {
		t.Fatalf("insert app_groups: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	flat, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if flat.Len() != 1 {
		t.Fatalf("rows = %d, want 1", flat.Len())
	}

	if v, _ := flat.Value(0, "teacher_score"); v != 0.8 {
		t.Errorf("teacher_score = %v, want 0.8", v)
	}
	if v, _ := flat.Value(0, "load_avg_one"); v != 0.7 {
		t.Errorf("load_avg_one = %v, want 0.7", v)
	}
	if v, _ := flat.Value(0, "has_tty"); v != TriTrue {
		t.Errorf("has_tty = %v, want TriTrue", v)
	}
	// The process references no group, so group columns stay null.
	if v, _ := flat.Value(0, "app_name"); v != nil {
		t.Errorf("app_name = %v, want nil", v)
	}
}

func TestLoadEmptyProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	st, err := store.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.InsertRows(store.TableSnapshots, []map[string]any{
		{"snapshot_id": 1, "timestamp": "2026-08-20T10:00:00Z"},
	}); err != nil {
		t.Fatalf("insert snapshots: %v", err)
	}
	_ = st.Close()

	flat, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if flat.Len() != 0 {
		t.Fatalf("rows = %d, want 0", flat.Len())
	}
}

func TestFlattenSortsBySnapshotAndPid(t *testing.T) {
	snaps := snapshotsFixture(t, 10, 20)
	procs := mkTable(t, []string{"snapshot_id", "pid"},
		[]any{int64(20), int64(5)},
		[]any{int64(10), int64(9)},
		[]any{int64(10), int64(2)},
	)

	flat, err := Flatten(snaps, procs, emptyAppGroups(t))
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	var got [][2]int64
	for i := 0; i < flat.Len(); i++ {
		sid, _ := flat.Value(i, "snapshot_id")
		pid, _ := flat.Value(i, "pid")
		got = append(got, [2]int64{sid.(int64), pid.(int64)})
	}
	want := [][2]int64{{10, 2}, {10, 9}, {20, 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenMissingKeyColumns(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id"}) // no pid

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsSchema(err) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
}

func TestFlattenNullKeys(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid"},
		[]any{int64(1), nil},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsIntegrity(err) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestFlattenDuplicateProcessKeys(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid"},
		[]any{int64(1), int64(100)},
		[]any{int64(1), int64(100)},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsIntegrity(err) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestFlattenDanglingSnapshotRef(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid"},
		[]any{int64(99), int64(100)},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsIntegrity(err) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestFlattenOrphanGroupMembership(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid", "app_group_id"},
		[]any{int64(1), int64(100), "ghost"},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsIntegrity(err) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestFlattenGroupInOtherSnapshotIsStillOrphan(t *testing.T) {
	snaps := snapshotsFixture(t, 1, 2)
	procs := mkTable(t, []string{"snapshot_id", "pid", "app_group_id"},
		[]any{int64(1), int64(100), "g1"},
	)
	groups := mkTable(t, []string{"snapshot_id", "app_group_id"},
		[]any{int64(2), "g1"}, // same key, wrong snapshot
	)

	_, err := Flatten(snaps, procs, groups)
	if !IsIntegrity(err) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestFlattenBoolCoercionError(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid", "has_tty"},
		[]any{int64(1), int64(100), "maybe"},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsCoercion(err) {
		t.Fatalf("err = %v, want CoercionError", err)
	}
}

func TestFlattenTagCoercionError(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid", "tags"},
		[]any{int64(1), int64(100), `{"not":"a list"}`},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsCoercion(err) {
		t.Fatalf("err = %v, want CoercionError", err)
	}
}

func TestFlattenNonFiniteValues(t *testing.T) {
	snaps := mkTable(t, []string{"snapshot_id", "load_avg_one"},
		[]any{int64(1), math.Inf(1)},
	)
	procs := mkTable(t, []string{"snapshot_id", "pid"},
		[]any{int64(1), int64(100)},
	)

	_, err := Flatten(snaps, procs, emptyAppGroups(t))
	if !IsNonFinite(err) {
		t.Fatalf("err = %v, want NonFiniteError", err)
	}
}

func TestFlattenNoGroupColumnSkipsGroupJoin(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid"}, // no app_group_id
		[]any{int64(1), int64(100)},
	)
	groups := mkTable(t, []string{"snapshot_id", "app_group_id", "app_name"},
		[]any{int64(1), "g1", "browser"},
	)

	flat, err := Flatten(snaps, procs, groups)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if flat.Len() != 1 {
		t.Fatalf("rows = %d, want 1", flat.Len())
	}
	if flat.Has("app_name") {
		t.Error("group columns joined despite missing app_group_id")
	}
}

func TestFlattenGroupColumnSuffixes(t *testing.T) {
	snaps := snapshotsFixture(t, 1)
	procs := mkTable(t, []string{"snapshot_id", "pid", "app_group_id", "has_gui_window", "tags"},
		[]any{int64(1), int64(100), "g1", int64(1), `["b","a"]`},
	)
	groups := mkTable(t, []string{"snapshot_id", "app_group_id", "app_name", "has_gui_window", "is_focused_group", "tags"},
		[]any{int64(1), "g1", "browser", int64(1), int64(0), `[]`},
	)

	flat, err := Flatten(snaps, procs, groups)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	// Process columns keep plain names; colliding group columns get _group.
	if !flat.Has("has_gui_window") || !flat.Has("has_gui_window_group") {
		t.Fatalf("expected has_gui_window and has_gui_window_group, have %v", flat.Columns())
	}
	if v, _ := flat.Value(0, "app_name"); v != "browser" {
		t.Errorf("app_name = %v, want browser", v)
	}
	if v, _ := flat.Value(0, "is_focused_group"); v != TriFalse {
		t.Errorf("is_focused_group = %v, want TriFalse", v)
	}
	tags, _ := flat.Value(0, "tags")
	if diff := cmp.Diff([]string{"b", "a"}, tags); diff != "" {
		t.Errorf("process tags mismatch (-want +got):\n%s", diff)
	}
}
