// Package pipeline wires the training data flow end to end: optionally
// collect live snapshots, size-check the store, load and validate the
// flattened table, build the feature matrix, and hand it to a trainer. The
// trainer itself (the boosting call and the model files it writes) lives
// outside this module; callers inject it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"taskrank/internal/collect"
	"taskrank/internal/config"
	"taskrank/internal/dataset"
	"taskrank/internal/features"
	"taskrank/internal/logging"
	"taskrank/internal/store"
)

// Trainer consumes one feature matrix. Implementations are expected to
// respect ctx for long fits.
type Trainer interface {
	Train(ctx context.Context, m *features.Matrix) error
}

// Pipeline runs training data preparation according to one Config.
type Pipeline struct {
	cfg *config.Config
	log *slog.Logger
}

// New returns a Pipeline for the given configuration. The configuration is
// assumed validated (config.Load validates; hand-built configs should call
// Validate first).
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, log: logging.New("pipeline")}
}

// Run executes the full flow and hands the resulting matrix to trainer.
func (p *Pipeline) Run(ctx context.Context, trainer Trainer) error {
	m, err := p.BuildMatrix(ctx)
	if err != nil {
		return err
	}
	p.log.Info("training", "rows", len(m.Target))
	if err := trainer.Train(ctx, m); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return nil
}

// BuildMatrix runs every stage up to and including the feature build and
// returns the matrix, leaving training to the caller.
func (p *Pipeline) BuildMatrix(ctx context.Context) (*features.Matrix, error) {
	path := p.cfg.Store.Path

	if p.cfg.Collector.Enabled {
		if err := p.collectInto(ctx, path); err != nil {
			return nil, err
		}
	}

	if err := p.checkSize(path); err != nil {
		return nil, err
	}

	flat, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	p.log.Info("loaded flattened table", "rows", flat.Len())

	m, err := features.Build(flat)
	if err != nil {
		return nil, err
	}
	p.log.Info("built feature matrix",
		"rows", len(m.Target),
		"columns", len(m.X.Columns()),
		"categorical", len(m.CatIndices))
	return m, nil
}

// collectInto appends freshly sampled snapshots to the store, creating it
// when absent.
func (p *Pipeline) collectInto(ctx context.Context, path string) error {
	st, err := store.Create(path)
	if err != nil {
		return err
	}
	defer st.Close()

	c := collect.New()
	p.log.Info("collecting snapshots",
		"count", p.cfg.Collector.Snapshots,
		"interval", p.cfg.Collector.Interval)
	return c.Run(ctx, st, p.cfg.Collector.Snapshots, p.cfg.Collector.Interval)
}

// checkSize validates the store against the configured training minimums.
func (p *Pipeline) checkSize(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &dataset.StoreNotFoundError{Path: path}
		}
		return fmt.Errorf("stat store: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.ReadStats()
	if err != nil {
		return err
	}
	p.log.Info("store statistics",
		"snapshots", stats.Snapshots,
		"processes", stats.Processes,
		"app_groups", stats.AppGroups,
		"first", stats.FirstTimestamp,
		"last", stats.LastTimestamp)

	return dataset.CheckSize(stats, dataset.Minimums{
		Snapshots: p.cfg.Dataset.MinSnapshots,
		Processes: p.cfg.Dataset.MinProcesses,
		AppGroups: p.cfg.Dataset.MinGroups,
	})
}
