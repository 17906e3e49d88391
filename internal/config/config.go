package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/optlab/internal/core"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Collector CollectorConfig `mapstructure:"collector"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Storage   StorageConfig   `mapstructure:"storage"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type ServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Mode        string        `mapstructure:"mode"`
	APIKey      string        `mapstructure:"api_key"`
	CORSOrigin  string        `mapstructure:"cors_origin"`
	JobTTLHours int           `mapstructure:"job_ttl_hours"`
	MaxJobs     int           `mapstructure:"max_jobs"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"` // bounds one async backtest
}

// BackendConfig points the web form and CLI at a remote backend. An empty
// URL runs backtests in-process.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CollectorConfig struct {
	Provider       string        `mapstructure:"provider"`
	ChartURL       string        `mapstructure:"chart_url"`
	OptionsURL     string        `mapstructure:"options_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	MaxRetries     int           `mapstructure:"max_retries"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// Risk-free rate sources
const (
	RiskFreeStatic   = "static"
	RiskFreeTreasury = "treasury"
)

type BacktestConfig struct {
	LookbackYears  int     `mapstructure:"lookback_years"`
	EntryWeekday   string  `mapstructure:"entry_weekday"`
	RiskFreeSource string  `mapstructure:"risk_free_source"` // "static" or "treasury"
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	TreasuryURL    string  `mapstructure:"treasury_url"`
}

// Weekday parses EntryWeekday
func (b BacktestConfig) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(b.EntryWeekday))
	if name == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", b.EntryWeekday)
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Claude   ClaudeConfig  `mapstructure:"claude"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotifyConfig holds job event delivery settings.
type NotifyConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig posts finished jobs to URL. An empty URL disables it.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("OPTLAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        5000,
			Mode:        "release",
			CORSOrigin:  "*",
			JobTTLHours: 1,
			MaxJobs:     100,
			JobTimeout:  5 * time.Minute,
		},
		Backend: BackendConfig{
			Timeout: 2 * time.Minute,
		},
		Collector: CollectorConfig{
			Provider:       "yahoo",
			Timeout:        30 * time.Second,
			RequestsPerSec: 2,
			MaxRetries:     3,
			CacheTTL:       15 * time.Minute,
		},
		Backtest: BacktestConfig{
			LookbackYears:  2,
			EntryWeekday:   "monday",
			RiskFreeSource: RiskFreeStatic,
			RiskFreeRate:   0.05,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "./data/archive",
			},
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Notify: NotifyConfig{
			Webhook: WebhookConfig{Timeout: 10 * time.Second},
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs cannot be negative, got %d", c.Server.MaxJobs))
	}
	if c.Server.JobTimeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("job_timeout cannot be negative, got %s", c.Server.JobTimeout))
	}

	if c.Collector.Provider != "yahoo" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown collector provider %q", c.Collector.Provider))
	}

	// Backtest validation
	if c.Backtest.LookbackYears < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_years must be at least 1, got %d", c.Backtest.LookbackYears))
	}
	if _, err := c.Backtest.Weekday(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	switch c.Backtest.RiskFreeSource {
	case "", RiskFreeStatic, RiskFreeTreasury:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_free_source must be static or treasury, got %q", c.Backtest.RiskFreeSource))
	}

	// Archive validation
	if c.Storage.Archive.Enabled {
		switch c.Storage.Archive.Type {
		case "localfs":
			if c.Storage.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Storage.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required for s3 archive"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
		}
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	return nil
}
