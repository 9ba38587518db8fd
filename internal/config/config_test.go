package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /var/lib/taskrank/data.sqlite
collector:
  enabled: true
  interval: 2s
  snapshots: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.Path != "/var/lib/taskrank/data.sqlite" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if !cfg.Collector.Enabled || cfg.Collector.Interval != 2*time.Second || cfg.Collector.Snapshots != 30 {
		t.Errorf("collector = %+v", cfg.Collector)
	}
	// untouched sections keep their defaults
	if diff := cmp.Diff(Default().Dataset, cfg.Dataset); diff != "" {
		t.Errorf("dataset defaults lost (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Default().Logging, cfg.Logging); diff != "" {
		t.Errorf("logging defaults lost (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "store: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidateJoinsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = ""
	cfg.Dataset.MinSnapshots = -1
	cfg.Dataset.MinProcesses = -2
	cfg.Collector.Enabled = true
	cfg.Collector.Interval = 0
	cfg.Collector.Snapshots = 0
	cfg.Logging.Level = "chatty"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"path must not be empty",
		"min_snapshots must not be negative",
		"min_processes must not be negative",
		"interval must be positive",
		"snapshots must be at least 1",
		`unknown level "chatty"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestDisabledCollectorSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Collector.Enabled = false
	cfg.Collector.Interval = 0
	cfg.Collector.Snapshots = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled collector should not be validated: %v", err)
	}
}

func TestLoggingFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "format must be text or json") {
		t.Fatalf("err = %v, want format violation", err)
	}
}
