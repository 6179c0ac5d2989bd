package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Semantic  SemanticConfig  `mapstructure:"semantic"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port" validate:"required"`
	Env          string        `mapstructure:"env" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

type AuthConfig struct {
	APIKeyRequired bool   `mapstructure:"api_key_required"`
	APIKeys        string `mapstructure:"api_keys"`
}

// Keys returns the configured API keys, trimmed and deduplicated.
func (a AuthConfig) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, k := range strings.Split(a.APIKeys, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

type UploadConfig struct {
	MaxUploadBytes       int64         `mapstructure:"max_upload_bytes" validate:"gt=0"`
	MaxPDFPages          int           `mapstructure:"max_pdf_pages" validate:"gt=0"`
	MaxDOCXParagraphs    int           `mapstructure:"max_docx_paragraphs" validate:"gt=0"`
	MaxCompressionRatio  float64       `mapstructure:"max_compression_ratio" validate:"gt=1"`
	MaxUncompressedBytes int64         `mapstructure:"max_uncompressed_bytes" validate:"gt=0"`
	ExtractionTimeout    time.Duration `mapstructure:"extraction_timeout" validate:"gt=0"`
	ExtractionWorkers    int           `mapstructure:"extraction_workers" validate:"gt=0"`
	MaxCVChars           int           `mapstructure:"max_cv_chars" validate:"gt=0"`
	MaxJobChars          int           `mapstructure:"max_job_chars" validate:"gt=0"`
	MinCVChars           int           `mapstructure:"min_cv_chars" validate:"gte=0,ltfield=MaxCVChars"`
	MinJobChars          int           `mapstructure:"min_job_chars" validate:"gte=0,ltfield=MaxJobChars"`
}

type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Capacity int           `mapstructure:"capacity" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests" validate:"gte=1"`
	Window   time.Duration `mapstructure:"window" validate:"gte=1s"`
}

type LLMConfig struct {
	Provider        string        `mapstructure:"provider" validate:"required"`
	Model           string        `mapstructure:"model" validate:"required"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url" validate:"omitempty,url"`
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout" validate:"gt=0"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
	Temperature     float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RequireEvidence bool          `mapstructure:"require_evidence"`
	MinEvidence     int           `mapstructure:"min_evidence" validate:"gte=0"`
}

type SemanticConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`
	SampleChars         int           `mapstructure:"sample_chars" validate:"gt=0"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("auth.api_key_required", true)
	v.SetDefault("auth.api_keys", "")

	v.SetDefault("upload.max_upload_bytes", 10*1024*1024)
	v.SetDefault("upload.max_pdf_pages", 50)
	v.SetDefault("upload.max_docx_paragraphs", 5000)
	v.SetDefault("upload.max_compression_ratio", 100.0)
	v.SetDefault("upload.max_uncompressed_bytes", 50*1024*1024)
	v.SetDefault("upload.extraction_timeout", "10s")
	v.SetDefault("upload.extraction_workers", 4)
	v.SetDefault("upload.max_cv_chars", 50000)
	v.SetDefault("upload.max_job_chars", 10000)
	v.SetDefault("upload.min_cv_chars", 200)
	v.SetDefault("upload.min_job_chars", 50)

	v.SetDefault("cache.ttl", "3600s")
	v.SetDefault("cache.capacity", 1024)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", "60s")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.attempt_timeout", "45s")
	v.SetDefault("llm.retry_backoff", "1s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.require_evidence", true)
	v.SetDefault("llm.min_evidence", 1)

	v.SetDefault("semantic.enabled", false)
	v.SetDefault("semantic.confidence_threshold", 0.7)
	v.SetDefault("semantic.sample_chars", 2000)
	v.SetDefault("semantic.timeout", "15s")

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads envFile (if present) into the process environment, binds every
// known key to its environment variable and validates the result. The
// returned config is never mutated afterwards.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Auth.APIKeyRequired && len(c.Auth.Keys()) == 0 {
		return fmt.Errorf("invalid config: auth.api_keys must list at least one key when auth is required")
	}
	return nil
}

// Masked returns a copy safe to print: secrets are replaced.
func (c Config) Masked() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "***"
	}
	if c.Auth.APIKeys != "" {
		c.Auth.APIKeys = fmt.Sprintf("*** (%d keys)", len(c.Auth.Keys()))
	}
	return c
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
