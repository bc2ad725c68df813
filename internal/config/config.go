package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/rcsclean/internal/pipeline"
	"github.com/obsidianstack/rcsclean/internal/repair"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultReportTTL         = 10 * time.Minute
	DefaultMaxReports        = 500
	DefaultBroadcastInterval = 2 * time.Second
	DefaultAlertCooldown     = 15 * time.Minute
)

// Config is the full configuration tree.
type Config struct {
	Policy PolicyConfig `yaml:"policy"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// PolicyConfig holds the processing parameters.
type PolicyConfig struct {
	// SmoothingWidth is the kernel width when smoothing is requested (default 1.0).
	SmoothingWidth float64 `yaml:"smoothing_width"`

	// FineSmoothingWidth is used when smoothing is not requested (default 0.1).
	FineSmoothingWidth float64 `yaml:"fine_smoothing_width"`

	// MinValue is the floor for repaired linear values (default 1e-10).
	MinValue float64 `yaml:"min_value"`

	// MinDB is the floor for dB output (default -50).
	MinDB float64 `yaml:"min_db"`

	// Backend is one of: gaussian | box.
	Backend string `yaml:"backend"`

	// Truncate is the gaussian kernel radius in sigmas (default 4.0).
	Truncate float64 `yaml:"truncate"`
}

// Pipeline converts the section into a pipeline.Policy.
func (p PolicyConfig) Pipeline() pipeline.Policy {
	return pipeline.Policy{
		SmoothingWidth:     p.SmoothingWidth,
		FineSmoothingWidth: p.FineSmoothingWidth,
		MinValue:           p.MinValue,
		MinDB:              p.MinDB,
		Backend:            p.Backend,
		Truncate:           p.Truncate,
	}
}

// ServerConfig holds the settings used by `rcsclean serve`.
type ServerConfig struct {
	// HTTPPort is the port the REST API, metrics and WebSocket stream listen on.
	HTTPPort int `yaml:"http_port"`

	Auth    AuthConfig    `yaml:"auth"`
	Reports ReportsConfig `yaml:"reports"`
	Stream  StreamConfig  `yaml:"stream"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// AuthConfig controls API-key authentication of the process endpoint.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv names the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`

	// Header defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// ReportsConfig controls retention of processing results.
type ReportsConfig struct {
	// TTL is how long a result stays retrievable after it was produced.
	TTL time.Duration `yaml:"ttl"`

	// Max caps the number of retained results; the oldest go first.
	Max int `yaml:"max"`
}

// StreamConfig controls the WebSocket report stream.
type StreamConfig struct {
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// AlertsConfig holds quality alert rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule is one threshold condition over processing reports.
type AlertRule struct {
	// Name is the deduplication key.
	Name string `yaml:"name"`

	// Condition is "field op value", e.g. "non_finite > 20" or "final_max < -40".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires. Defaults to 15 minutes.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig is one alert delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LogConfig controls the process-wide logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SlogLevel parses Level, falling back to Info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the config file at path. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Policy: PolicyConfig{
			SmoothingWidth:     pipeline.DefaultSmoothingWidth,
			FineSmoothingWidth: pipeline.DefaultFineSmoothingWidth,
			MinValue:           repair.DefaultMinValue,
			MinDB:              pipeline.DefaultMinDB,
			Backend:            repair.DefaultBackend,
			Truncate:           repair.DefaultTruncate,
		},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Reports: ReportsConfig{
				TTL: DefaultReportTTL,
				Max: DefaultMaxReports,
			},
			Stream: StreamConfig{
				BroadcastInterval: DefaultBroadcastInterval,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func validate(cfg *Config) error {
	if err := cfg.Policy.Pipeline().Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Auth.Mode == "apikey" && s.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required when mode is apikey")
	}
	if s.Reports.TTL < 0 {
		return fmt.Errorf("server.reports.ttl must not be negative")
	}
	if s.Reports.Max < 0 {
		return fmt.Errorf("server.reports.max must not be negative")
	}
	if s.Stream.BroadcastInterval <= 0 {
		return fmt.Errorf("server.stream.broadcast_interval must be positive")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name and condition are required", i)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("server.alerts.rules[%d].severity %q unknown", i, r.Severity)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
	}

	switch cfg.Log.Format {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); cfg.Log.Level != "" && err != nil {
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
