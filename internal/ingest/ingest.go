// Package ingest loads JSONL snapshot logs, as written by the monitoring
// daemon, into a snapshot store. Each input line is one snapshot document
// with embedded "processes" and "app_groups" arrays; list-valued fields are
// re-serialized to JSON text columns because the store keeps them as TEXT.
// Malformed lines are logged and skipped so one bad write by the collector
// does not lose a whole log.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"taskrank/internal/logging"
	"taskrank/internal/store"
)

// chunkSize is how many snapshot documents accumulate before a batched
// insert.
const chunkSize = 1000

// Result summarizes one ingest run.
type Result struct {
	Lines     int
	Snapshots int
	Processes int
	AppGroups int
	Skipped   int
}

// File ingests one JSONL snapshot log into the store.
func File(path string, st *store.Store) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot log: %w", err)
	}
	defer f.Close()
	return Reader(f, st)
}

// Reader ingests JSONL snapshot documents from r into the store.
func Reader(r io.Reader, st *store.Store) (*Result, error) {
	log := logging.New("ingest")
	res := &Result{}

	var (
		snapshots []map[string]any
		processes []map[string]any
		appGroups []map[string]any
	)

	flush := func() error {
		if err := st.InsertRows(store.TableSnapshots, snapshots); err != nil {
			return err
		}
		if err := st.InsertRows(store.TableProcesses, processes); err != nil {
			return err
		}
		if err := st.InsertRows(store.TableAppGroups, appGroups); err != nil {
			return err
		}
		snapshots, processes, appGroups = nil, nil, nil
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		res.Lines++

		var doc map[string]any
		if err := json.Unmarshal(line, &doc); err != nil {
			res.Skipped++
			log.Warn("skipping malformed snapshot line", "line", res.Lines, "err", err)
			continue
		}

		snap, procs, groups, err := explode(doc)
		if err != nil {
			res.Skipped++
			log.Warn("skipping snapshot document", "line", res.Lines, "err", err)
			continue
		}

		snapshots = append(snapshots, snap)
		processes = append(processes, procs...)
		appGroups = append(appGroups, groups...)
		res.Snapshots++
		res.Processes += len(procs)
		res.AppGroups += len(groups)

		if len(snapshots) >= chunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot log: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	log.Info("ingest complete",
		"lines", res.Lines,
		"snapshots", res.Snapshots,
		"processes", res.Processes,
		"app_groups", res.AppGroups,
		"skipped", res.Skipped)
	return res, nil
}

// explode splits a snapshot document into its three table rows: one
// snapshot row (every top-level scalar), the embedded process rows and the
// embedded app-group rows, each stamped with the parent snapshot_id.
func explode(doc map[string]any) (snap map[string]any, procs, groups []map[string]any, err error) {
	sid, ok := doc["snapshot_id"]
	if !ok {
		return nil, nil, nil, fmt.Errorf("document has no snapshot_id")
	}

	snap = make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "processes" || k == "app_groups" {
			continue
		}
		snap[k] = v
	}

	procs, err = embedded(doc, "processes", sid)
	if err != nil {
		return nil, nil, nil, err
	}
	groups, err = embedded(doc, "app_groups", sid)
	if err != nil {
		return nil, nil, nil, err
	}
	return snap, procs, groups, nil
}

func embedded(doc map[string]any, key string, sid any) ([]map[string]any, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not an array", key)
	}
	rows := make([]map[string]any, 0, len(list))
	for i, e := range list {
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an object", key, i)
		}
		row := make(map[string]any, len(obj)+1)
		for k, v := range obj {
			switch k {
			case "tags", "process_ids":
				enc, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("%s[%d].%s: %w", key, i, k, err)
				}
				row[k] = string(enc)
			default:
				row[k] = v
			}
		}
		row["snapshot_id"] = sid
		rows = append(rows, row)
	}
	return rows, nil
}
