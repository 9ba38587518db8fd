package store

import (
	"fmt"
	"sort"
	"strings"
)

// DDL for the three snapshot tables. This mirrors what the monitoring
// collector creates; Create applies it so ingested stores are
// indistinguishable from collected ones.
const (
	snapshotsDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id INTEGER PRIMARY KEY,
    timestamp TEXT NOT NULL,
    cpu_user REAL,
    cpu_system REAL,
    cpu_idle REAL,
    cpu_iowait REAL,
    mem_total_kb INTEGER,
    mem_used_kb INTEGER,
    mem_available_kb INTEGER,
    swap_total_kb INTEGER,
    swap_used_kb INTEGER,
    load_avg_one REAL,
    load_avg_five REAL,
    load_avg_fifteen REAL,
    psi_cpu_some_avg10 REAL,
    psi_cpu_some_avg60 REAL,
    psi_io_some_avg10 REAL,
    psi_mem_some_avg10 REAL,
    psi_mem_full_avg10 REAL,
    user_active INTEGER,
    time_since_last_input_ms INTEGER,
    sched_latency_p95_ms REAL,
    sched_latency_p99_ms REAL,
    audio_xruns_delta INTEGER,
    ui_loop_p95_ms REAL,
    frame_jank_ratio REAL,
    bad_responsiveness INTEGER,
    responsiveness_score REAL
)`

	processesDDL = `
CREATE TABLE IF NOT EXISTS processes (
    snapshot_id INTEGER NOT NULL,
    pid INTEGER NOT NULL,
    ppid INTEGER,
    uid INTEGER,
    gid INTEGER,
    exe TEXT,
    cmdline TEXT,
    cgroup_path TEXT,
    systemd_unit TEXT,
    app_group_id TEXT,
    state TEXT,
    start_time INTEGER,
    uptime_sec INTEGER,
    tty_nr INTEGER,
    has_tty INTEGER,
    cpu_share_1s REAL,
    cpu_share_10s REAL,
    io_read_bytes INTEGER,
    io_write_bytes INTEGER,
    rss_mb INTEGER,
    swap_mb INTEGER,
    voluntary_ctx INTEGER,
    involuntary_ctx INTEGER,
    has_gui_window INTEGER,
    is_focused_window INTEGER,
    window_state TEXT,
    env_has_display INTEGER,
    env_has_wayland INTEGER,
    env_term TEXT,
    env_ssh INTEGER,
    is_audio_client INTEGER,
    has_active_stream INTEGER,
    process_type TEXT,
    tags TEXT,
    nice INTEGER,
    ionice_class INTEGER,
    ionice_prio INTEGER,
    teacher_priority_class TEXT,
    teacher_score REAL,
    PRIMARY KEY (snapshot_id, pid)
)`

	appGroupsDDL = `
CREATE TABLE IF NOT EXISTS app_groups (
    snapshot_id INTEGER NOT NULL,
    app_group_id TEXT NOT NULL,
    root_pid INTEGER,
    process_ids TEXT,
    app_name TEXT,
    total_cpu_share REAL,
    total_io_read_bytes INTEGER,
    total_io_write_bytes INTEGER,
    total_rss_mb INTEGER,
    has_gui_window INTEGER,
    is_focused_group INTEGER,
    tags TEXT,
    priority_class TEXT,
    PRIMARY KEY (snapshot_id, app_group_id)
)`
)

func (s *Store) initSchema() error {
	for _, ddl := range []string{snapshotsDDL, processesDDL, appGroupsDDL} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// InsertRows writes a batch of rows into the named table inside one
// transaction. Rows are column maps because ingested snapshot documents
// carry whatever subset of the contract their collector version knew about;
// the insert column list is the sorted union of all keys so every row binds
// the same statement. INSERT OR REPLACE keeps re-ingesting the same snapshot
// log idempotent.
func (s *Store) InsertRows(table string, rows []map[string]any) error {
	switch table {
	case TableSnapshots, TableProcesses, TableAppGroups:
	default:
		return fmt.Errorf("unknown snapshot table %q", table)
	}
	if len(rows) == 0 {
		return nil
	}

	colSet := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			colSet[k] = true
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert into %q: %w", table, err)
	}
	prepared, err := tx.Prepare(stmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert into %q: %w", table, err)
	}
	defer prepared.Close()

	args := make([]any, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			args[i] = r[c]
		}
		if _, err := prepared.Exec(args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert into %q: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert into %q: %w", table, err)
	}
	return nil
}
