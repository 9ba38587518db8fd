// Package collect samples the running system into snapshot store rows. It
// covers the subset of the store contract that can be measured from
// userspace process accounting: system CPU/memory/swap/load, per-process
// usage, and executable-name app groups with summed totals. Supervisory
// fields (teacher_score, priority classes) are only ever written by the
// scheduling daemon; collected snapshots carry a coarse responsiveness
// score derived from run-queue pressure so they remain trainable.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"taskrank/internal/logging"
	"taskrank/internal/store"
)

// Collector samples the local system. The zero value is not usable;
// construct with New.
type Collector struct {
	log *slog.Logger
}

// New returns a Collector.
func New() *Collector {
	return &Collector{log: logging.New("collect")}
}

// Run takes n snapshots, interval apart, writing each to the store. It
// stops early when ctx is cancelled.
func (c *Collector) Run(ctx context.Context, st *store.Store, n int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < n; i++ {
		if err := c.Collect(ctx, st); err != nil {
			return err
		}
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Collect takes one snapshot and writes its three row sets to the store.
func (c *Collector) Collect(ctx context.Context, st *store.Store) error {
	now := time.Now().UTC()
	sid := now.UnixMilli()

	snap, err := systemRow(ctx, sid, now)
	if err != nil {
		return err
	}
	procs, groups, err := processRows(ctx, sid)
	if err != nil {
		return err
	}

	if err := st.InsertRows(store.TableSnapshots, []map[string]any{snap}); err != nil {
		return err
	}
	if err := st.InsertRows(store.TableProcesses, procs); err != nil {
		return err
	}
	if err := st.InsertRows(store.TableAppGroups, groups); err != nil {
		return err
	}
	c.log.Info("collected snapshot", "snapshot_id", sid, "processes", len(procs), "app_groups", len(groups))
	return nil
}

// systemRow gathers the system-wide metrics concurrently; each probe is
// independent and some (CPU times) block briefly.
func systemRow(ctx context.Context, sid int64, now time.Time) (map[string]any, error) {
	row := map[string]any{
		"snapshot_id": sid,
		"timestamp":   now.Format(time.RFC3339),
	}

	var (
		cpuTimes []cpu.TimesStat
		vm       *mem.VirtualMemoryStat
		swap     *mem.SwapMemoryStat
		loadAvg  *load.AvgStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cpuTimes, err = cpu.TimesWithContext(gctx, false)
		if err != nil {
			return fmt.Errorf("cpu times: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vm, err = mem.VirtualMemoryWithContext(gctx)
		if err != nil {
			return fmt.Errorf("virtual memory: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		swap, err = mem.SwapMemoryWithContext(gctx)
		if err != nil {
			return fmt.Errorf("swap memory: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		loadAvg, err = load.AvgWithContext(gctx)
		if err != nil {
			return fmt.Errorf("load averages: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(cpuTimes) > 0 {
		t := cpuTimes[0]
		total := t.User + t.System + t.Idle + t.Iowait + t.Nice + t.Irq + t.Softirq + t.Steal
		if total > 0 {
			row["cpu_user"] = t.User / total
			row["cpu_system"] = t.System / total
			row["cpu_idle"] = t.Idle / total
			row["cpu_iowait"] = t.Iowait / total
		}
	}
	row["mem_total_kb"] = int64(vm.Total / 1024)
	row["mem_used_kb"] = int64(vm.Used / 1024)
	row["mem_available_kb"] = int64(vm.Available / 1024)
	row["swap_total_kb"] = int64(swap.Total / 1024)
	row["swap_used_kb"] = int64(swap.Used / 1024)
	row["load_avg_one"] = loadAvg.Load1
	row["load_avg_five"] = loadAvg.Load5
	row["load_avg_fifteen"] = loadAvg.Load15

	// Coarse stand-in for the daemon's latency-derived quality score:
	// run-queue pressure per core, clamped to [0, 1].
	pressure := loadAvg.Load1 / float64(max(runtime.NumCPU(), 1))
	score := 1.0 - pressure
	if score < 0 {
		score = 0
	}
	row["responsiveness_score"] = score

	return row, nil
}

// processRows samples every visible process and aggregates app groups by
// executable name. Processes that disappear mid-walk are skipped.
func processRows(ctx context.Context, sid int64) ([]map[string]any, []map[string]any, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list processes: %w", err)
	}

	type groupAgg struct {
		name    string
		rootPID int64
		pids    []int64
		cpu     float64
		ioRead  int64
		ioWrite int64
		rssMB   int64
	}

	rows := make([]map[string]any, 0, len(procs))
	groups := make(map[string]*groupAgg)

	for _, p := range procs {
		row := map[string]any{
			"snapshot_id": sid,
			"pid":         int64(p.Pid),
		}

		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			// Kernel threads and inaccessible processes are not
			// scheduling candidates.
			continue
		}
		row["exe"] = exe

		name := filepath.Base(exe)
		gid := "exe:" + name
		row["app_group_id"] = gid

		if ppid, err := p.PpidWithContext(ctx); err == nil {
			row["ppid"] = int64(ppid)
		}
		if uids, err := p.UidsWithContext(ctx); err == nil && len(uids) > 0 {
			row["uid"] = int64(uids[0])
		}
		if gids, err := p.GidsWithContext(ctx); err == nil && len(gids) > 0 {
			row["gid"] = int64(gids[0])
		}
		if cmd, err := p.CmdlineWithContext(ctx); err == nil {
			row["cmdline"] = cmd
		}
		if created, err := p.CreateTimeWithContext(ctx); err == nil {
			row["start_time"] = created / 1000
			row["uptime_sec"] = (time.Now().UnixMilli() - created) / 1000
		}
		if term, err := p.TerminalWithContext(ctx); err == nil {
			row["has_tty"] = boolInt(term != "")
			if term != "" {
				row["env_term"] = term
			}
		}
		if nice, err := p.NiceWithContext(ctx); err == nil {
			row["nice"] = int64(nice)
		}

		var cpuShare float64
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			cpuShare = pct / 100
			row["cpu_share_1s"] = cpuShare
			row["cpu_share_10s"] = cpuShare
		}
		var ioRead, ioWrite int64
		if io, err := p.IOCountersWithContext(ctx); err == nil {
			ioRead, ioWrite = int64(io.ReadBytes), int64(io.WriteBytes)
			row["io_read_bytes"] = ioRead
			row["io_write_bytes"] = ioWrite
		}
		var rssMB int64
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			rssMB = int64(mi.RSS / (1024 * 1024))
			row["rss_mb"] = rssMB
			row["swap_mb"] = int64(mi.Swap / (1024 * 1024))
		}
		if ctxSw, err := p.NumCtxSwitchesWithContext(ctx); err == nil {
			row["voluntary_ctx"] = ctxSw.Voluntary
			row["involuntary_ctx"] = ctxSw.Involuntary
		}
		row["tags"] = "[]"

		rows = append(rows, row)

		g := groups[gid]
		if g == nil {
			g = &groupAgg{name: name, rootPID: int64(p.Pid)}
			groups[gid] = g
		}
		if int64(p.Pid) < g.rootPID {
			g.rootPID = int64(p.Pid)
		}
		g.pids = append(g.pids, int64(p.Pid))
		g.cpu += cpuShare
		g.ioRead += ioRead
		g.ioWrite += ioWrite
		g.rssMB += rssMB
	}

	groupRows := make([]map[string]any, 0, len(groups))
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g := groups[id]
		groupRows = append(groupRows, map[string]any{
			"snapshot_id":          sid,
			"app_group_id":         id,
			"app_name":             g.name,
			"root_pid":             g.rootPID,
			"process_ids":          jsonInts(g.pids),
			"total_cpu_share":      g.cpu,
			"total_io_read_bytes":  g.ioRead,
			"total_io_write_bytes": g.ioWrite,
			"total_rss_mb":         g.rssMB,
		})
	}
	return rows, groupRows, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func jsonInts(v []int64) string {
	if len(v) == 0 {
		return "[]"
	}
	out := "["
	for i, x := range v {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprint(x)
	}
	return out + "]"
}
