package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research agent
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Server    ServerConfig    `mapstructure:"server"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains the language model provider configuration
type LLMConfig struct {
	Type            string        `mapstructure:"type"` // openai, anthropic, local, etc.
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ContextWindow   int           `mapstructure:"context_window"`    // input+output token budget
	MaxAnswerTokens int           `mapstructure:"max_answer_tokens"` // reserved for the final answer
}

// SearchConfig contains web search provider settings
type SearchConfig struct {
	SerperAPIKey  string        `mapstructure:"serper_api_key"`
	BraveAPIKey   string        `mapstructure:"brave_api_key"`
	MaxResults    int           `mapstructure:"max_results"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FetchMaxChars int           `mapstructure:"fetch_max_chars"`
}

// PipelineConfig contains retry and token-budget settings for the research loop
type PipelineConfig struct {
	MaxRetries            int `mapstructure:"max_retries"`
	ContentTokenThreshold int `mapstructure:"content_token_threshold"` // per-document compression threshold
	ChunkTokens           int `mapstructure:"chunk_tokens"`            // map-reduce chunk budget
	SummaryTokens         int `mapstructure:"summary_tokens"`          // output cap for compression/map calls
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	File  FileConfig  `mapstructure:"file"`
	Redis RedisConfig `mapstructure:"redis"`
}

// FileConfig contains file storage settings
type FileConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// RedisConfig contains the optional search cache settings.
// The cache is enabled when a host is configured.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoadConfig loads config from file, environment and defaults.
// A missing config file is fine; a config that leaves the system unable
// to search or to call the model is not.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	applyEnvOverrides(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", 60*time.Second)

	v.SetDefault("llm.type", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.context_window", 128000)
	v.SetDefault("llm.max_answer_tokens", 4096)

	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("search.fetch_max_chars", 20000)

	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.content_token_threshold", 4000)
	v.SetDefault("pipeline.chunk_tokens", 4000)
	v.SetDefault("pipeline.summary_tokens", 1024)

	v.SetDefault("storage.file.data_dir", "./data")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.ttl", 6*time.Hour)
	v.SetDefault("storage.redis.timeout", 5*time.Second)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.metrics_port", 9090)

	v.SetDefault("server.address", ":10001")
}

// applyEnvOverrides maps the well-known env var names onto config keys so
// the agent works with the same environment the provider dashboards hand out.
func applyEnvOverrides(v *viper.Viper) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		v.Set("llm.api_key", key)
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		v.Set("llm.base_url", base)
	}
	if key := os.Getenv("SERPER_API_KEY"); key != "" {
		v.Set("search.serper_api_key", key)
	}
	if key := os.Getenv("BRAVE_SEARCH_KEY"); key != "" {
		v.Set("search.brave_api_key", key)
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		v.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		v.Set("storage.redis.port", port)
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		v.Set("storage.redis.password", pass)
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			v.Set("storage.redis.db", n)
		}
	}
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required (or set OPENAI_API_KEY)")
	}
	if strings.TrimSpace(cfg.Search.SerperAPIKey) == "" && strings.TrimSpace(cfg.Search.BraveAPIKey) == "" {
		return fmt.Errorf("no web search provider configured: set search.serper_api_key or search.brave_api_key")
	}
	if cfg.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries cannot be negative")
	}
	if cfg.LLM.ContextWindow <= cfg.LLM.MaxAnswerTokens {
		return fmt.Errorf("llm.context_window must exceed llm.max_answer_tokens")
	}
	return nil
}
