package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sitegen/internal/ratelimit"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	SQLitePath  string
	StoragePath string

	APIToken      string
	MutationLimit int

	TemplatesPath string
	IdentityPath  string

	TextProvider  string
	ImageProvider string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiImage   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string
	QwenAPIKey    string
	QwenModel     string
	QwenBaseURL   string

	HTTPReadTimeout    time.Duration
	HTTPHeaderTimeout  time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	ShutdownGrace      time.Duration
	OutboundTimeout    time.Duration
	WorkerPollInterval time.Duration

	Pipeline   PipelineConfig
	RateLimits map[string]ratelimit.Policy
}

// PipelineConfig tunes the generation pipeline.
type PipelineConfig struct {
	ContentMaxAttempts int
	ContentRetryBase   time.Duration
	ContentItemDelay   time.Duration
	ImageItemDelay     time.Duration
	IdentitySteps      int
	ContentSteps       int
	ImageSteps         int
}

// UsesPostgres reports whether the Postgres adapter should back persistence.
func (c *Config) UsesPostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	// Missing .env files are fine.
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "data/sitegen.db"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		APIToken:           os.Getenv("API_TOKEN"),
		MutationLimit:      getEnvInt("API_MUTATION_LIMIT", 30),
		TemplatesPath:      getEnv("TEMPLATES_PATH", "templates"),
		IdentityPath:       os.Getenv("IDENTITY_PATH"),
		TextProvider:       strings.ToLower(getEnv("TEXT_PROVIDER", "gemini")),
		ImageProvider:      strings.ToLower(getEnv("IMAGE_PROVIDER", "gemini")),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiImage:        getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:          os.Getenv("OPENAI_ORG"),
		QwenAPIKey:         os.Getenv("QWEN_API_KEY"),
		QwenModel:          getEnv("QWEN_MODEL", "qwen-image-plus"),
		QwenBaseURL:        getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPHeaderTimeout:  time.Second * time.Duration(getEnvInt("HTTP_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ShutdownGrace:      time.Second * time.Duration(getEnvInt("HTTP_SHUTDOWN_GRACE_SECONDS", 20)),
		OutboundTimeout:    time.Second * time.Duration(getEnvInt("OUTBOUND_TIMEOUT_SECONDS", 90)),
		WorkerPollInterval: getEnvMillis("WORKER_POLL_INTERVAL_MS", 2000),
		Pipeline: PipelineConfig{
			ContentMaxAttempts: getEnvInt("CONTENT_MAX_ATTEMPTS", 3),
			ContentRetryBase:   getEnvMillis("CONTENT_RETRY_BASE_MS", 2000),
			ContentItemDelay:   getEnvMillis("CONTENT_ITEM_DELAY_MS", 1000),
			ImageItemDelay:     getEnvMillis("IMAGE_ITEM_DELAY_MS", 2000),
			IdentitySteps:      getEnvInt("IDENTITY_STEPS", 1),
			ContentSteps:       getEnvInt("CONTENT_STEPS", 0),
			ImageSteps:         getEnvInt("IMAGE_STEPS", 30),
		},
	}

	if cfg.TextProvider != "gemini" && cfg.TextProvider != "openai" && cfg.TextProvider != "static" {
		return nil, fmt.Errorf("TEXT_PROVIDER must be one of gemini, openai, static")
	}
	if cfg.ImageProvider != "gemini" && cfg.ImageProvider != "qwen" {
		return nil, fmt.Errorf("IMAGE_PROVIDER must be one of gemini, qwen")
	}
	if cfg.Pipeline.ContentMaxAttempts < 1 {
		return nil, fmt.Errorf("CONTENT_MAX_ATTEMPTS must be at least 1")
	}

	policies, err := loadRateLimits()
	if err != nil {
		return nil, err
	}
	cfg.RateLimits = policies

	return cfg, nil
}

// loadRateLimits starts from the built-in policies and applies
// RATELIMIT_<SERVICE>_{BASE_MS,MAX_MS,JITTER,MAX_ATTEMPTS} overrides.
func loadRateLimits() (map[string]ratelimit.Policy, error) {
	policies := ratelimit.DefaultPolicies()
	for name, policy := range policies {
		prefix := "RATELIMIT_" + strings.ToUpper(name) + "_"
		policy.BaseDelay = getEnvMillis(prefix+"BASE_MS", int(policy.BaseDelay/time.Millisecond))
		policy.MaxDelay = getEnvMillis(prefix+"MAX_MS", int(policy.MaxDelay/time.Millisecond))
		policy.MaxAttempts = getEnvInt(prefix+"MAX_ATTEMPTS", policy.MaxAttempts)
		if v, ok := os.LookupEnv(prefix + "JITTER"); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%sJITTER: %w", prefix, err)
			}
			policy.JitterFactor = f
		}
		if err := policy.Validate(); err != nil {
			return nil, err
		}
		policies[name] = policy
	}
	return policies, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Millisecond * time.Duration(getEnvInt(key, fallback))
}
