// Package config loads and validates enricher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/munro-enricher/internal/extract"
)

// Fetcher modes.
const (
	FetcherHeadless = "headless"
	FetcherStatic   = "static"
)

// Attachment backends.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Export drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultUserAgent is sent by both fetchers unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/122.0.0.0 Safari/537.36"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Input       InputConfig       `mapstructure:"input"`
	Output      OutputConfig      `mapstructure:"output"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Fetcher     FetcherConfig     `mapstructure:"fetcher"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Layout      extract.Layout    `mapstructure:"layout"`
	Export      ExportConfig      `mapstructure:"export"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Discover    DiscoverConfig    `mapstructure:"discover"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// InputConfig points at the entity list.
type InputConfig struct {
	Entities string `mapstructure:"entities"`
}

// OutputConfig points at the enriched dataset.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// PipelineConfig governs the worker pool and checkpoints.
type PipelineConfig struct {
	Workers              int `mapstructure:"workers"`
	CheckpointEvery      int `mapstructure:"checkpoint_every"`
	DetailTimeoutSeconds int `mapstructure:"detail_timeout_seconds"`
	JitterMinMs          int `mapstructure:"jitter_min_ms"`
	JitterMaxMs          int `mapstructure:"jitter_max_ms"`
}

// FetcherConfig selects and tunes the page fetcher.
type FetcherConfig struct {
	Mode                  string `mapstructure:"mode"`
	UserAgent             string `mapstructure:"user_agent"`
	NavTimeoutSeconds     int    `mapstructure:"nav_timeout_seconds"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	ShowBrowser           bool   `mapstructure:"show_browser"`
	ChromePath            string `mapstructure:"chrome_path"`
	RespectRobots         bool   `mapstructure:"respect_robots"`
}

// RateLimitConfig sets the per-host token bucket. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// AttachmentsConfig selects where attachment files are kept.
type AttachmentsConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Backend               string `mapstructure:"backend"`
	Dir                   string `mapstructure:"dir"`
	GCSBucket             string `mapstructure:"gcs_bucket"`
	GCSPrefix             string `mapstructure:"gcs_prefix"`
	ConfirmTimeoutSeconds int    `mapstructure:"confirm_timeout_seconds"`
	ContentType           string `mapstructure:"content_type"`
}

// ExportConfig controls the export command's destination.
type ExportConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	DSN        string `mapstructure:"dsn"`
	Table      string `mapstructure:"table"`
	MaxConns   int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for record notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DiscoverConfig locates the index page used to build the entity list.
type DiscoverConfig struct {
	IndexURL           string `mapstructure:"index_url"`
	LinkSelector       string `mapstructure:"link_selector"`
	BaseURL            string `mapstructure:"base_url"`
	WaitTimeoutSeconds int    `mapstructure:"wait_timeout_seconds"`
}

// Load builds a Config from disk/environment. Environment variables use the
// MUNRO_ prefix with dots replaced by underscores, e.g. MUNRO_PIPELINE_WORKERS.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MUNRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("input.entities", "munro_list.json")
	v.SetDefault("output.path", "munro_descriptions.json")
	v.SetDefault("pipeline.workers", 3)
	v.SetDefault("pipeline.checkpoint_every", 5)
	v.SetDefault("pipeline.detail_timeout_seconds", 10)
	v.SetDefault("pipeline.jitter_min_ms", 500)
	v.SetDefault("pipeline.jitter_max_ms", 1000)
	v.SetDefault("fetcher.mode", FetcherHeadless)
	v.SetDefault("fetcher.user_agent", DefaultUserAgent)
	v.SetDefault("fetcher.nav_timeout_seconds", 45)
	v.SetDefault("fetcher.request_timeout_seconds", 15)
	v.SetDefault("fetcher.show_browser", false)
	v.SetDefault("fetcher.chrome_path", "")
	v.SetDefault("fetcher.respect_robots", false)
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 2)
	v.SetDefault("attachments.enabled", true)
	v.SetDefault("attachments.backend", BackendLocal)
	v.SetDefault("attachments.dir", "gpx_files")
	v.SetDefault("attachments.gcs_bucket", "")
	v.SetDefault("attachments.gcs_prefix", "gpx")
	v.SetDefault("attachments.confirm_timeout_seconds", 5)
	v.SetDefault("attachments.content_type", "application/gpx+xml")
	v.SetDefault("export.driver", DriverSQLite)
	v.SetDefault("export.sqlite_path", "db.sqlite")
	v.SetDefault("export.dsn", "")
	v.SetDefault("export.table", "munros")
	v.SetDefault("export.max_conns", 4)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("discover.index_url", "https://www.walkhighlands.co.uk/munros/munros-a-z")
	v.SetDefault("discover.link_selector", "#arealist tbody a, #areamap tbody a")
	v.SetDefault("discover.base_url", "https://www.walkhighlands.co.uk/munros/")
	v.SetDefault("discover.wait_timeout_seconds", 15)

	layout := extract.DefaultLayout()
	v.SetDefault("layout.heading_selector", layout.HeadingSelector)
	v.SetDefault("layout.detail_heading", layout.DetailHeading)
	v.SetDefault("layout.ready_selector", layout.ReadySelector)
	v.SetDefault("layout.description_selector", layout.DescriptionSelector)
	v.SetDefault("layout.summary_heading", layout.SummaryHeading)
	v.SetDefault("layout.terrain_heading", layout.TerrainHeading)
	v.SetDefault("layout.transport_heading", layout.TransportHeading)
	v.SetDefault("layout.start_heading", layout.StartHeading)
	v.SetDefault("layout.start_cut_marker", layout.StartCutMarker)
	v.SetDefault("layout.stats_selector", layout.StatsSelector)
	v.SetDefault("layout.grade_selector", layout.GradeSelector)
	v.SetDefault("layout.bog_selector", layout.BogSelector)
	v.SetDefault("layout.attachment_selector", layout.AttachmentSelector)
	v.SetDefault("layout.confirm_text", layout.ConfirmText)
	v.SetDefault("layout.attachment_ext", layout.AttachmentExt)
	v.SetDefault("layout.range_separators", layout.RangeSeparators)
	v.SetDefault("layout.round_decimals", layout.RoundDecimals)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Input.Entities == "" {
		return fmt.Errorf("input.entities must be set")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must be set")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.Pipeline.CheckpointEvery <= 0 {
		return fmt.Errorf("pipeline.checkpoint_every must be > 0")
	}
	if c.Pipeline.DetailTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.detail_timeout_seconds must be > 0")
	}
	if c.Pipeline.JitterMinMs < 0 || c.Pipeline.JitterMaxMs < c.Pipeline.JitterMinMs {
		return fmt.Errorf("pipeline jitter must satisfy 0 <= jitter_min_ms <= jitter_max_ms")
	}
	switch c.Fetcher.Mode {
	case FetcherHeadless, FetcherStatic:
	default:
		return fmt.Errorf("fetcher.mode must be %q or %q, got %q", FetcherHeadless, FetcherStatic, c.Fetcher.Mode)
	}
	if c.Fetcher.NavTimeoutSeconds <= 0 || c.Fetcher.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher timeouts must be > 0")
	}
	if c.Attachments.Enabled {
		switch c.Attachments.Backend {
		case BackendLocal:
			if c.Attachments.Dir == "" {
				return fmt.Errorf("attachments.dir must be set for the local backend")
			}
		case BackendGCS:
			if c.Attachments.GCSBucket == "" {
				return fmt.Errorf("attachments.gcs_bucket must be set for the gcs backend")
			}
		case BackendMemory:
		default:
			return fmt.Errorf("attachments.backend %q is not supported", c.Attachments.Backend)
		}
	}
	switch c.Export.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("export.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Export.Driver)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	return nil
}

// DetailTimeout is the readiness wait for detail pages.
func (c Config) DetailTimeout() time.Duration {
	return time.Duration(c.Pipeline.DetailTimeoutSeconds) * time.Second
}

// Jitter returns the pause range after the first page load.
func (c Config) Jitter() (time.Duration, time.Duration) {
	return time.Duration(c.Pipeline.JitterMinMs) * time.Millisecond,
		time.Duration(c.Pipeline.JitterMaxMs) * time.Millisecond
}

// NavTimeout bounds one browser navigation.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetcher.NavTimeoutSeconds) * time.Second
}

// RequestTimeout bounds one plain HTTP request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetcher.RequestTimeoutSeconds) * time.Second
}

// ConfirmTimeout is the wait for the attachment confirmation link.
func (c Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Attachments.ConfirmTimeoutSeconds) * time.Second
}

// DiscoverWait is the wait for index links to appear.
func (c Config) DiscoverWait() time.Duration {
	return time.Duration(c.Discover.WaitTimeoutSeconds) * time.Second
}
