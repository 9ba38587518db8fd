// Package dataset assembles the flattened training table from a snapshot
// store. It loads the three snapshot tables, enforces the key, referential
// integrity and type contracts, and joins them into one process-level frame
// ordered by (snapshot_id, pid). All validation is fail-fast: the first
// violated contract surfaces as a typed error and nothing is silently
// dropped or defaulted.
package dataset

// Kind is the declared type of a snapshot store column. Scalar kinds are
// normalized without rejection (SQLite columns are dynamically typed);
// KindBool and the list kinds reject anything outside their documented
// encodings.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool // three-valued: true / false / unknown
	KindString
	KindStringList // JSON array of scalars, decoded to []string
	KindIntList    // JSON array of integers, decoded to []int64
)

// ColumnSpec declares one column of a snapshot table.
type ColumnSpec struct {
	Name string
	Kind Kind
	Key  bool
}

// TableSchema declares the column contract of one snapshot table. Columns
// not listed here pass through the loader untouched; key columns must be
// present, everything else is optional.
type TableSchema struct {
	Table   string
	Columns []ColumnSpec
}

// Keys returns the names of the key columns in declared order.
func (s TableSchema) Keys() []string {
	var keys []string
	for _, c := range s.Columns {
		if c.Key {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// Spec returns the declaration for the named column, if any.
func (s TableSchema) Spec(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// SnapshotsSchema declares the system-wide observation table: one row per
// observation instant.
var SnapshotsSchema = TableSchema{
	Table: "snapshots",
	Columns: []ColumnSpec{
		{Name: "snapshot_id", Kind: KindInt, Key: true},
		{Name: "timestamp", Kind: KindString},
		{Name: "cpu_user", Kind: KindFloat},
		{Name: "cpu_system", Kind: KindFloat},
		{Name: "cpu_idle", Kind: KindFloat},
		{Name: "cpu_iowait", Kind: KindFloat},
		{Name: "mem_total_kb", Kind: KindInt},
		{Name: "mem_used_kb", Kind: KindInt},
		{Name: "mem_available_kb", Kind: KindInt},
		{Name: "swap_total_kb", Kind: KindInt},
		{Name: "swap_used_kb", Kind: KindInt},
		{Name: "load_avg_one", Kind: KindFloat},
		{Name: "load_avg_five", Kind: KindFloat},
		{Name: "load_avg_fifteen", Kind: KindFloat},
		{Name: "psi_cpu_some_avg10", Kind: KindFloat},
		{Name: "psi_cpu_some_avg60", Kind: KindFloat},
		{Name: "psi_io_some_avg10", Kind: KindFloat},
		{Name: "psi_mem_some_avg10", Kind: KindFloat},
		{Name: "psi_mem_full_avg10", Kind: KindFloat},
		{Name: "user_active", Kind: KindBool},
		{Name: "time_since_last_input_ms", Kind: KindInt},
		{Name: "sched_latency_p95_ms", Kind: KindFloat},
		{Name: "sched_latency_p99_ms", Kind: KindFloat},
		{Name: "audio_xruns_delta", Kind: KindInt},
		{Name: "ui_loop_p95_ms", Kind: KindFloat},
		{Name: "frame_jank_ratio", Kind: KindFloat},
		{Name: "bad_responsiveness", Kind: KindBool},
		{Name: "responsiveness_score", Kind: KindFloat},
	},
}

// ProcessesSchema declares the per-process observation table: one row per
// (snapshot_id, pid).
var ProcessesSchema = TableSchema{
	Table: "processes",
	Columns: []ColumnSpec{
		{Name: "snapshot_id", Kind: KindInt, Key: true},
		{Name: "pid", Kind: KindInt, Key: true},
		{Name: "ppid", Kind: KindInt},
		{Name: "uid", Kind: KindInt},
		{Name: "gid", Kind: KindInt},
		{Name: "exe", Kind: KindString},
		{Name: "cmdline", Kind: KindString},
		{Name: "cgroup_path", Kind: KindString},
		{Name: "systemd_unit", Kind: KindString},
		{Name: "app_group_id", Kind: KindString},
		{Name: "state", Kind: KindString},
		{Name: "start_time", Kind: KindInt},
		{Name: "uptime_sec", Kind: KindInt},
		{Name: "tty_nr", Kind: KindInt},
		{Name: "has_tty", Kind: KindBool},
		{Name: "cpu_share_1s", Kind: KindFloat},
		{Name: "cpu_share_10s", Kind: KindFloat},
		{Name: "io_read_bytes", Kind: KindInt},
		{Name: "io_write_bytes", Kind: KindInt},
		{Name: "rss_mb", Kind: KindInt},
		{Name: "swap_mb", Kind: KindInt},
		{Name: "voluntary_ctx", Kind: KindInt},
		{Name: "involuntary_ctx", Kind: KindInt},
		{Name: "has_gui_window", Kind: KindBool},
		{Name: "is_focused_window", Kind: KindBool},
		{Name: "window_state", Kind: KindString},
		{Name: "env_has_display", Kind: KindBool},
		{Name: "env_has_wayland", Kind: KindBool},
		{Name: "env_term", Kind: KindString},
		{Name: "env_ssh", Kind: KindBool},
		{Name: "is_audio_client", Kind: KindBool},
		{Name: "has_active_stream", Kind: KindBool},
		{Name: "process_type", Kind: KindString},
		{Name: "tags", Kind: KindStringList},
		{Name: "nice", Kind: KindInt},
		{Name: "ionice_class", Kind: KindInt},
		{Name: "ionice_prio", Kind: KindInt},
		{Name: "teacher_priority_class", Kind: KindString},
		{Name: "teacher_score", Kind: KindFloat},
	},
}

// AppGroupsSchema declares the process-group aggregate table: one row per
// (snapshot_id, app_group_id).
var AppGroupsSchema = TableSchema{
	Table: "app_groups",
	Columns: []ColumnSpec{
		{Name: "snapshot_id", Kind: KindInt, Key: true},
		{Name: "app_group_id", Kind: KindString, Key: true},
		{Name: "root_pid", Kind: KindInt},
		{Name: "process_ids", Kind: KindIntList},
		{Name: "app_name", Kind: KindString},
		{Name: "total_cpu_share", Kind: KindFloat},
		{Name: "total_io_read_bytes", Kind: KindInt},
		{Name: "total_io_write_bytes", Kind: KindInt},
		{Name: "total_rss_mb", Kind: KindInt},
		{Name: "has_gui_window", Kind: KindBool},
		{Name: "is_focused_group", Kind: KindBool},
		{Name: "tags", Kind: KindStringList},
		{Name: "priority_class", Kind: KindString},
	},
}
