package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aiagents-directory/directory-cli/internal/filter"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Sourcing   SourcingConfig   `yaml:"sourcing" mapstructure:"sourcing"`
	Filter     filter.Rules     `yaml:"filter" mapstructure:"filter"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Assets     AssetsConfig     `yaml:"assets" mapstructure:"assets"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings, used as the markdown
// fallback when Firecrawl scrapes fail.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key                 string `yaml:"key" mapstructure:"key"`
	HaikuModel          string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel         string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	MaxBatchSize        int    `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	NoBatch             bool   `yaml:"no_batch" mapstructure:"no_batch"`
	SmallBatchThreshold int    `yaml:"small_batch_threshold" mapstructure:"small_batch_threshold"`
}

// SourcingConfig configures SERP discovery runs.
type SourcingConfig struct {
	QueriesFile     string `yaml:"queries_file" mapstructure:"queries_file"`
	ResultsPerQuery int    `yaml:"results_per_query" mapstructure:"results_per_query"`
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
	Recency         string `yaml:"recency" mapstructure:"recency"`
	Location        string `yaml:"location" mapstructure:"location"`
}

// EnrichConfig configures the enrichment stage.
type EnrichConfig struct {
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	ClaimTTLSecs      int     `yaml:"claim_ttl_secs" mapstructure:"claim_ttl_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	AggregatorMinConf float64 `yaml:"aggregator_min_confidence" mapstructure:"aggregator_min_confidence"`
}

// ReviewConfig configures the AI review stage.
type ReviewConfig struct {
	Concurrency         int     `yaml:"concurrency" mapstructure:"concurrency"`
	ClaimTTLSecs        int     `yaml:"claim_ttl_secs" mapstructure:"claim_ttl_secs"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	AutoApply           bool    `yaml:"auto_apply" mapstructure:"auto_apply"`
}

// AssetsConfig configures logo and screenshot storage.
type AssetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RetryConfig configures per-call retry behavior for external services.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures pipeline health checks and webhook
// alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	ManualQueueThreshold int     `yaml:"manual_queue_threshold" mapstructure:"manual_queue_threshold"`
	SidingThreshold      int     `yaml:"siding_threshold" mapstructure:"siding_threshold"`
	DiscardRateThreshold float64 `yaml:"discard_rate_threshold" mapstructure:"discard_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "directory.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.rate_per_second", 2)
	v.SetDefault("firecrawl.timeout_secs", 120)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_batch_size", 100)
	v.SetDefault("anthropic.small_batch_threshold", 3)
	v.SetDefault("sourcing.queries_file", "queries.yaml")
	v.SetDefault("sourcing.results_per_query", 20)
	v.SetDefault("sourcing.concurrency", 4)
	v.SetDefault("sourcing.recency", "week")
	v.SetDefault("enrich.concurrency", 5)
	v.SetDefault("enrich.claim_ttl_secs", 300)
	v.SetDefault("enrich.max_attempts", 3)
	v.SetDefault("enrich.aggregator_min_confidence", 0.5)
	v.SetDefault("review.concurrency", 5)
	v.SetDefault("review.claim_ttl_secs", 300)
	v.SetDefault("review.max_attempts", 3)
	v.SetDefault("review.confidence_threshold", 0.7)
	v.SetDefault("review.auto_apply", true)
	v.SetDefault("assets.dir", "assets")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.manual_queue_threshold", 50)
	v.SetDefault("monitoring.siding_threshold", 25)
	v.SetDefault("monitoring.discard_rate_threshold", 0.5)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the credentials and settings a command depends on
// are present. Sections: "firecrawl", "anthropic", "store", "review".
func (c *Config) Validate(sections ...string) error {
	for _, s := range sections {
		switch s {
		case "firecrawl":
			if c.Firecrawl.Key == "" {
				return eris.New("config: firecrawl.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				return eris.New("config: anthropic.key is required")
			}
		case "store":
			switch c.Store.Driver {
			case "sqlite":
				if c.Store.Path == "" {
					return eris.New("config: store.path is required for sqlite")
				}
			case "postgres":
				if c.Store.DatabaseURL == "" {
					return eris.New("config: store.database_url is required for postgres")
				}
			default:
				return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
			}
		case "review":
			if c.Review.ConfidenceThreshold < 0 || c.Review.ConfidenceThreshold > 1 {
				return eris.Errorf("config: review.confidence_threshold %v outside [0,1]", c.Review.ConfidenceThreshold)
			}
		default:
			return eris.Errorf("config: unknown validation section %q", s)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
