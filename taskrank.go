// Package taskrank prepares training data for a listwise process-ranking
// model. It reads snapshot stores written by the scheduling daemon (or
// its own live collector), validates and flattens them into one table,
// and projects that table into a fixed-shape feature matrix grouped by
// snapshot. The boosting trainer itself is injected by the caller.
//
// Typical use:
//
//	cfg, err := taskrank.LoadConfig("taskrank.yaml")
//	...
//	m, err := taskrank.New(cfg).BuildMatrix(ctx)
package taskrank

import (
	"context"

	"taskrank/internal/config"
	"taskrank/internal/dataset"
	"taskrank/internal/features"
	"taskrank/internal/frame"
	"taskrank/internal/ingest"
	"taskrank/internal/logging"
	"taskrank/internal/pipeline"
	"taskrank/internal/store"
)

// Config is the root training-pipeline configuration.
type Config = config.Config

// Matrix is the model-ready feature projection: the feature table, the
// target vector, the per-row ranking group and the categorical column
// positions.
type Matrix = features.Matrix

// Trainer consumes one feature matrix.
type Trainer = pipeline.Trainer

// Pipeline runs training data preparation according to one Config.
type Pipeline = pipeline.Pipeline

// IngestResult summarizes one snapshot-log ingest run.
type IngestResult = ingest.Result

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads and validates a YAML config file, applying its logging
// section to the process-wide logger.
func LoadConfig(path string) (*Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, cfg.Logging.Format)
	return cfg, nil
}

// New returns a Pipeline for the given configuration.
func New(cfg *Config) *Pipeline { return pipeline.New(cfg) }

// Load reads and validates the snapshot store at path and returns the
// flattened per-process table.
func Load(path string) (*frame.Table, error) { return dataset.Load(path) }

// BuildFeatures projects a flattened table into a feature matrix.
func BuildFeatures(flat *frame.Table) (*Matrix, error) { return features.Build(flat) }

// Ingest loads a JSONL snapshot log into the store at storePath, creating
// the store when absent.
func Ingest(logPath, storePath string) (*IngestResult, error) {
	st, err := store.Create(storePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return ingest.File(logPath, st)
}

// Run executes the full flow for cfg and hands the matrix to trainer.
func Run(ctx context.Context, cfg *Config, trainer Trainer) error {
	return New(cfg).Run(ctx, trainer)
}

// Error predicates for the typed failures of loading and feature building.
var (
	IsStoreNotFound = dataset.IsStoreNotFound
	IsSchema        = dataset.IsSchema
	IsIntegrity     = dataset.IsIntegrity
	IsCoercion      = dataset.IsCoercion
	IsNonFinite     = dataset.IsNonFinite
	IsEmptyInput    = dataset.IsEmptyInput
	IsTooSmall      = dataset.IsTooSmall
)
