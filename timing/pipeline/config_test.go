package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sarchlab/tracesim/timing/pipeline"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := pipeline.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := pipeline.InOrderConfig().Validate(); err != nil {
		t.Fatalf("in-order config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pipeline.Config)
	}{
		{"zero rob", func(c *pipeline.Config) { c.ROBSize = 0 }},
		{"zero load queue", func(c *pipeline.Config) { c.LoadQueueSize = 0 }},
		{"zero fetch width", func(c *pipeline.Config) { c.FetchWidth = 0 }},
		{"negative retire width", func(c *pipeline.Config) { c.RetireWidth = -1 }},
		{"unknown discipline", func(c *pipeline.Config) { c.Discipline = "dataflow" }},
		{"unknown tie-break", func(c *pipeline.Config) { c.OoOTieBreak = "random" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pipeline.DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := pipeline.InOrderConfig()
	cfg.ROBSize = 64
	cfg.ExecWidth = 2

	if err := pipeline.SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := pipeline.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != cfg {
		t.Fatalf("round trip changed the config:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadConfigKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"discipline": "inorder"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := pipeline.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Discipline != "inorder" {
		t.Fatalf("discipline = %q, want inorder", cfg.Discipline)
	}
	if cfg.ROBSize != pipeline.DefaultConfig().ROBSize {
		t.Fatal("omitted fields should keep their defaults")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := pipeline.LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
