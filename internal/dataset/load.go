package dataset

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"taskrank/internal/frame"
	"taskrank/internal/store"
)

// Suffixes applied to column names that collide during flattening. Process
// columns keep their plain name against group columns; the snapshot join
// disambiguates both sides.
const (
	suffixProc  = "_proc"
	suffixSnap  = "_snap"
	suffixGroup = "_group"
)

// Load reads the three snapshot tables from the store at path, validates
// them, and returns the flattened process-level training table sorted by
// (snapshot_id, pid). An empty processes table yields an empty frame and no
// error: the caller decides what "nothing to train on" means.
func Load(path string) (*frame.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &StoreNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat store: %w", err)
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	snapshots, err := s.ReadTable(store.TableSnapshots)
	if err != nil {
		return nil, err
	}
	processes, err := s.ReadTable(store.TableProcesses)
	if err != nil {
		return nil, err
	}
	appGroups, err := s.ReadTable(store.TableAppGroups)
	if err != nil {
		return nil, err
	}

	return Flatten(snapshots, processes, appGroups)
}

// Flatten validates the three tables and joins them into the process-level
// training table. It is exposed separately from Load so callers holding
// already-read tables (and tests) can exercise the contract directly.
func Flatten(snapshots, processes, appGroups *frame.Table) (*frame.Table, error) {
	for _, tc := range []struct {
		t      *frame.Table
		schema TableSchema
	}{
		{snapshots, SnapshotsSchema},
		{processes, ProcessesSchema},
		{appGroups, AppGroupsSchema},
	} {
		if err := requireKeyColumns(tc.t, tc.schema); err != nil {
			return nil, err
		}
		if err := checkKeysPresent(tc.t, tc.schema); err != nil {
			return nil, err
		}
	}

	if err := checkUnique(processes, ProcessesSchema); err != nil {
		return nil, err
	}
	if err := checkUnique(appGroups, AppGroupsSchema); err != nil {
		return nil, err
	}

	snapshotIDs := keySet(snapshots, "snapshot_id")
	if err := checkSnapshotRefs(processes, ProcessesSchema.Table, snapshotIDs); err != nil {
		return nil, err
	}
	if err := checkSnapshotRefs(appGroups, AppGroupsSchema.Table, snapshotIDs); err != nil {
		return nil, err
	}
	if err := checkGroupMembership(processes, appGroups); err != nil {
		return nil, err
	}

	if processes.Len() == 0 {
		return frame.New()
	}

	for _, tc := range []struct {
		t      *frame.Table
		schema TableSchema
	}{
		{snapshots, SnapshotsSchema},
		{processes, ProcessesSchema},
		{appGroups, AppGroupsSchema},
	} {
		if err := coerceTable(tc.t, tc.schema); err != nil {
			return nil, err
		}
		if err := checkFinite(tc.t, tc.schema.Table); err != nil {
			return nil, err
		}
	}

	flat, err := frame.LeftJoin(processes, snapshots, []string{"snapshot_id"}, suffixProc, suffixSnap)
	if err != nil {
		return nil, err
	}
	// Without an app_group_id column no process can name a group; skip the
	// join so the group columns stay absent instead of failing it.
	if appGroups.Len() > 0 && flat.Has("app_group_id") {
		flat, err = frame.LeftJoin(flat, appGroups, []string{"snapshot_id", "app_group_id"}, "", suffixGroup)
		if err != nil {
			return nil, err
		}
	}

	flat.SortBy("snapshot_id", "pid")
	return flat, nil
}

// requireKeyColumns verifies the table declares its key columns.
func requireKeyColumns(t *frame.Table, schema TableSchema) error {
	var missing []string
	for _, k := range schema.Keys() {
		if !t.Has(k) {
			missing = append(missing, k)
		}
	}
	if missing != nil {
		sort.Strings(missing)
		return &SchemaError{Table: schema.Table, Missing: missing}
	}
	return nil
}

// checkKeysPresent rejects null cells in key columns.
func checkKeysPresent(t *frame.Table, schema TableSchema) error {
	keys := schema.Keys()
	var samples []string
	for i := 0; i < t.Len(); i++ {
		for _, k := range keys {
			if v, _ := t.Value(i, k); v == nil {
				if len(samples) < SampleLimit {
					samples = append(samples, fmt.Sprintf("row %d (%s)", i, k))
				}
			}
		}
	}
	if samples != nil {
		return &IntegrityError{
			Table:   schema.Table,
			Key:     keys,
			Reason:  "null values in key columns",
			Samples: samples,
		}
	}
	return nil
}

// checkUnique rejects duplicate key tuples.
func checkUnique(t *frame.Table, schema TableSchema) error {
	keys := schema.Keys()
	seen := make(map[string]bool, t.Len())
	dup := make(map[string]bool)
	var samples []string
	for i := 0; i < t.Len(); i++ {
		k := keyTuple(t, i, keys)
		if seen[k] && !dup[k] {
			dup[k] = true
			if len(samples) < SampleLimit {
				samples = append(samples, k)
			}
		}
		seen[k] = true
	}
	if samples != nil {
		return &IntegrityError{
			Table:   schema.Table,
			Key:     keys,
			Reason:  "duplicate keys",
			Samples: samples,
		}
	}
	return nil
}

// checkSnapshotRefs verifies every snapshot_id in t references a snapshots
// row.
func checkSnapshotRefs(t *frame.Table, table string, snapshotIDs map[string]bool) error {
	missing := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		v, _ := t.Value(i, "snapshot_id")
		if v == nil {
			continue
		}
		if k := canonCell(v); !snapshotIDs[k] {
			missing[k] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	samples := sortedSamples(missing)
	return &IntegrityError{
		Table:   table,
		Key:     []string{"snapshot_id"},
		Reason:  "snapshot_id not present in snapshots",
		Samples: samples,
	}
}

// checkGroupMembership verifies that every non-null app_group_id named by a
// process has a matching app_groups row within the same snapshot. Dangling
// membership is an integrity violation, not a silent null-join.
func checkGroupMembership(processes, appGroups *frame.Table) error {
	if !processes.Has("app_group_id") {
		return nil
	}
	known := make(map[string]bool, appGroups.Len())
	for i := 0; i < appGroups.Len(); i++ {
		known[keyTuple(appGroups, i, []string{"snapshot_id", "app_group_id"})] = true
	}
	missing := make(map[string]bool)
	for i := 0; i < processes.Len(); i++ {
		g, _ := processes.Value(i, "app_group_id")
		if g == nil {
			continue
		}
		if gs, ok := g.(string); ok && strings.TrimSpace(gs) == "" {
			continue
		}
		if k := keyTuple(processes, i, []string{"snapshot_id", "app_group_id"}); !known[k] {
			missing[k] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &IntegrityError{
		Table:   "processes",
		Key:     []string{"snapshot_id", "app_group_id"},
		Reason:  "app_group_id has no matching app_groups row",
		Samples: sortedSamples(missing),
	}
}

// keySet collects the canonical non-null values of one column.
func keySet(t *frame.Table, col string) map[string]bool {
	out := make(map[string]bool, t.Len())
	for i := 0; i < t.Len(); i++ {
		if v, _ := t.Value(i, col); v != nil {
			out[canonCell(v)] = true
		}
	}
	return out
}

// keyTuple renders the key cells of one row as "(a, b)".
func keyTuple(t *frame.Table, row int, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := t.Value(row, k)
		if v == nil {
			parts[i] = "<null>"
			continue
		}
		parts[i] = canonCell(v)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// canonCell normalizes a key cell so int64 and integral float64 encodings
// of the same identifier compare equal.
func canonCell(v any) string {
	switch x := v.(type) {
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return trimFloat(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// sortedSamples orders offending keys deterministically, numerically when
// every key is an integer, and caps the result at SampleLimit.
func sortedSamples(set map[string]bool) []string {
	all := make([]string, 0, len(set))
	numeric := true
	for k := range set {
		all = append(all, k)
		if _, err := strconv.ParseInt(k, 10, 64); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(all, func(i, j int) bool {
			a, _ := strconv.ParseInt(all[i], 10, 64)
			b, _ := strconv.ParseInt(all[j], 10, 64)
			return a < b
		})
	} else {
		sort.Strings(all)
	}
	if len(all) > SampleLimit {
		all = all[:SampleLimit]
	}
	return all
}
