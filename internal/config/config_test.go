package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
input:
  entities: data/list.json
output:
  path: data/out.json
pipeline:
  workers: 6
  checkpoint_every: 10
  detail_timeout_seconds: 20
  jitter_min_ms: 0
  jitter_max_ms: 250
fetcher:
  mode: static
  user_agent: real-agent
  request_timeout_seconds: 30
ratelimit:
  rps: 0.5
  burst: 1
attachments:
  backend: gcs
  gcs_bucket: routes
  gcs_prefix: tracks
layout:
  detail_heading: Full route
  range_separators: ["-", "to"]
export:
  driver: postgres
  dsn: postgres://localhost/munros
  table: hills
pubsub:
  enabled: true
  project_id: proj
  topic_name: records
logging:
  development: false
  level: warn
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input.Entities != "data/list.json" || cfg.Output.Path != "data/out.json" {
		t.Fatalf("expected path overrides, got %+v %+v", cfg.Input, cfg.Output)
	}
	if cfg.Pipeline.Workers != 6 || cfg.Pipeline.CheckpointEvery != 10 {
		t.Fatalf("expected pipeline overrides, got %+v", cfg.Pipeline)
	}
	if cfg.Fetcher.Mode != FetcherStatic || cfg.Fetcher.UserAgent != "real-agent" {
		t.Fatalf("expected fetcher overrides, got %+v", cfg.Fetcher)
	}
	if cfg.Attachments.Backend != BackendGCS || cfg.Attachments.GCSBucket != "routes" {
		t.Fatalf("expected gcs attachments, got %+v", cfg.Attachments)
	}
	if cfg.Layout.DetailHeading != "Full route" {
		t.Fatalf("expected layout override, got %q", cfg.Layout.DetailHeading)
	}
	if cfg.Layout.ReadySelector != "#walk_desc" {
		t.Fatalf("expected untouched layout fields to keep defaults, got %q", cfg.Layout.ReadySelector)
	}
	if got := cfg.Layout.RangeSeparators; len(got) != 2 || got[1] != "to" {
		t.Fatalf("expected range separators override, got %v", got)
	}
	if cfg.Export.Driver != DriverPostgres || cfg.Export.Table != "hills" {
		t.Fatalf("expected export overrides, got %+v", cfg.Export)
	}
	if !cfg.PubSub.Enabled || cfg.PubSub.TopicName != "records" {
		t.Fatalf("expected pubsub overrides, got %+v", cfg.PubSub)
	}
	if got := cfg.DetailTimeout(); got != 20*time.Second {
		t.Fatalf("expected detail timeout 20s, got %v", got)
	}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Fatalf("expected request timeout 30s, got %v", got)
	}
	minJitter, maxJitter := cfg.Jitter()
	if minJitter != 0 || maxJitter != 250*time.Millisecond {
		t.Fatalf("expected jitter 0-250ms, got %v-%v", minJitter, maxJitter)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input.Entities != "munro_list.json" || cfg.Output.Path != "munro_descriptions.json" {
		t.Fatalf("unexpected default paths: %+v %+v", cfg.Input, cfg.Output)
	}
	if cfg.Pipeline.Workers != 3 || cfg.Pipeline.CheckpointEvery != 5 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Fetcher.Mode != FetcherHeadless || cfg.Fetcher.UserAgent != DefaultUserAgent {
		t.Fatalf("unexpected fetcher defaults: %+v", cfg.Fetcher)
	}
	if cfg.Attachments.Dir != "gpx_files" || cfg.Attachments.Backend != BackendLocal {
		t.Fatalf("unexpected attachment defaults: %+v", cfg.Attachments)
	}
	if got := cfg.ConfirmTimeout(); got != 5*time.Second {
		t.Fatalf("expected confirm timeout 5s, got %v", got)
	}
	if got := cfg.NavTimeout(); got != 45*time.Second {
		t.Fatalf("expected nav timeout 45s, got %v", got)
	}
	if cfg.Export.SQLitePath != "db.sqlite" || cfg.Export.Table != "munros" {
		t.Fatalf("unexpected export defaults: %+v", cfg.Export)
	}
	if cfg.Layout.AttachmentExt != ".gpx" {
		t.Fatalf("unexpected layout defaults: %+v", cfg.Layout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	base := cfg

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, want: "pipeline.workers"},
		{name: "invalid checkpoint", mutate: func(c *Config) { c.Pipeline.CheckpointEvery = 0 }, want: "pipeline.checkpoint_every"},
		{
			name: "inverted jitter",
			mutate: func(c *Config) {
				c.Pipeline.JitterMinMs = 900
				c.Pipeline.JitterMaxMs = 100
			},
			want: "jitter",
		},
		{name: "unknown fetcher", mutate: func(c *Config) { c.Fetcher.Mode = "lynx" }, want: "fetcher.mode"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Attachments.Backend = BackendGCS }, want: "attachments.gcs_bucket"},
		{name: "unknown backend", mutate: func(c *Config) { c.Attachments.Backend = "s3" }, want: "attachments.backend"},
		{name: "unknown driver", mutate: func(c *Config) { c.Export.Driver = "mysql" }, want: "export.driver"},
		{
			name: "pubsub missing topic",
			mutate: func(c *Config) {
				c.PubSub.Enabled = true
				c.PubSub.ProjectID = "p"
			},
			want: "pubsub",
		},
		{name: "layout missing heading", mutate: func(c *Config) { c.Layout.DetailHeading = "" }, want: "layout.detail_heading"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base
			c.Layout.RangeSeparators = append([]string(nil), base.Layout.RangeSeparators...)
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateSkipsDisabledAttachments(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Attachments.Enabled = false
	cfg.Attachments.Backend = "unused"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled attachments to skip backend checks, got %v", err)
	}
}
