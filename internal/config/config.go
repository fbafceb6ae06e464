// Package config provides configuration for the assistant binaries. Values
// come from defaults, an optional YAML file named by CONFIG_FILE and the
// environment, in that order. A .env file is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `yaml:"port"`
	ServerReadTimeout  time.Duration `yaml:"read_timeout"`
	ServerWriteTimeout time.Duration `yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	Environment        string        `yaml:"environment"`

	// NATS settings
	NATSEnabled  bool   `yaml:"nats_enabled"`
	NATSURL      string `yaml:"nats_url"`
	NATSCAFile   string `yaml:"nats_ca_file"`
	NATSCertFile string `yaml:"nats_cert_file"`
	NATSKeyFile  string `yaml:"nats_key_file"`
	NATSToken    string `yaml:"nats_token"`

	// JWT settings
	AuthEnabled   bool          `yaml:"auth_enabled"`
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTExpiration time.Duration `yaml:"jwt_expiration"`

	// LLM settings. An empty provider is picked from the first key present;
	// no key at all leaves the LLM layers disabled.
	LLMProvider        string        `yaml:"llm_provider"`
	LLMModel           string        `yaml:"llm_model"`
	AnthropicAPIKey    string        `yaml:"anthropic_api_key"`
	OpenAIAPIKey       string        `yaml:"openai_api_key"`
	GeminiAPIKey       string        `yaml:"gemini_api_key"`
	LLMClassifyTimeout time.Duration `yaml:"llm_classify_timeout"`
	LLMRewriteTimeout  time.Duration `yaml:"llm_rewrite_timeout"`
	LLMValidateTimeout time.Duration `yaml:"llm_validate_timeout"`
	LLMConcurrency     int           `yaml:"llm_concurrency_limit"`

	// Intent classification
	ConfidenceAcceptLLM   float64 `yaml:"confidence_accept_llm"`
	ConfidenceAcceptRule  float64 `yaml:"confidence_accept_rule"`
	IntentCacheSize       int     `yaml:"intent_cache_size"`
	IntentCacheEvictBatch int     `yaml:"intent_cache_evict_batch"`

	// Retrieval
	RetrieverMaxResults      int `yaml:"retriever_max_results"`
	RetrieverSpecificMax     int `yaml:"retriever_specific_max"`
	RetrieverVerySpecificMax int `yaml:"retriever_very_specific_max"`

	// Result cache and sessions
	DefaultCacheTTL      time.Duration `yaml:"default_cache_ttl"`
	CacheMaxSize         int           `yaml:"cache_max_size"`
	SessionCacheMax      int           `yaml:"session_cache_max"`
	RedisURL             string        `yaml:"redis_url"`
	SessionIdleTTL       time.Duration `yaml:"session_idle_ttl"`
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`

	// Chat turn
	ChatBudget         time.Duration `yaml:"chat_budget"`
	MaxUtteranceLength int           `yaml:"max_utterance_length"`
	MaxListedProducts  int           `yaml:"max_listed_products"`

	// Catalog
	CatalogDir        string        `yaml:"catalog_dir"`
	ArtifactDir       string        `yaml:"artifact_dir"`
	CatalogWatch      bool          `yaml:"catalog_watch"`
	PreloadTenants    []string      `yaml:"preload_tenants"`
	PostgresDSN       string        `yaml:"postgres_dsn"`
	ProductsTable     string        `yaml:"products_table"`
	BusinessTable     string        `yaml:"business_table"`
	TenantLoadTimeout time.Duration `yaml:"tenant_load_timeout"`

	// Rate limiting
	RateLimitRequests       int           `yaml:"rate_limit_requests"`
	RateLimitTenantRequests int           `yaml:"rate_limit_tenant_requests"`
	RateLimitWindow         time.Duration `yaml:"rate_limit_window"`
	CORSOrigins             []string      `yaml:"cors_origins"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Tracing
	TracingEndpoint    string  `yaml:"tracing_endpoint"`
	TracingEnabled     bool    `yaml:"tracing_enabled"`
	TracingInsecure    bool    `yaml:"tracing_insecure"`
	TracingSampleRatio float64 `yaml:"tracing_sample_ratio"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		ServerReadTimeout:  30 * time.Second,
		ServerWriteTimeout: 30 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		Environment:        "development",

		NATSURL: "nats://localhost:4222",

		AuthEnabled:   true,
		JWTSecret:     "development-secret-change-in-production",
		JWTExpiration: 15 * time.Minute,

		LLMClassifyTimeout: time.Second,
		LLMRewriteTimeout:  500 * time.Millisecond,
		LLMValidateTimeout: time.Second,
		LLMConcurrency:     8,

		ConfidenceAcceptLLM:   0.7,
		ConfidenceAcceptRule:  0.95,
		IntentCacheSize:       1000,
		IntentCacheEvictBatch: 200,

		RetrieverMaxResults:      5,
		RetrieverSpecificMax:     2,
		RetrieverVerySpecificMax: 1,

		DefaultCacheTTL:      1800 * time.Second,
		CacheMaxSize:         1000,
		SessionCacheMax:      50,
		SessionIdleTTL:       1800 * time.Second,
		SessionSweepInterval: time.Minute,

		ChatBudget:         3 * time.Second,
		MaxUtteranceLength: 500,
		MaxListedProducts:  5,

		CatalogDir:        "data/tenants",
		ArtifactDir:       "data/artifacts",
		CatalogWatch:      true,
		ProductsTable:     "products",
		BusinessTable:     "businesses",
		TenantLoadTimeout: 30 * time.Second,

		RateLimitRequests:       60,
		RateLimitTenantRequests: 600,
		RateLimitWindow:         time.Minute,

		LogLevel: "info",

		TracingEndpoint:    "localhost:4318",
		TracingInsecure:    true,
		TracingSampleRatio: 1,
	}
}

// Load reads .env, the optional CONFIG_FILE and the environment, then
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.ServerReadTimeout)
	c.ServerWriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout)
	c.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	// NATS
	c.NATSEnabled = getBoolEnv("NATS_ENABLED", c.NATSEnabled)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSCAFile = getEnv("NATS_CA_FILE", c.NATSCAFile)
	c.NATSCertFile = getEnv("NATS_CERT_FILE", c.NATSCertFile)
	c.NATSKeyFile = getEnv("NATS_KEY_FILE", c.NATSKeyFile)
	c.NATSToken = getEnv("NATS_TOKEN", c.NATSToken)

	// JWT
	c.AuthEnabled = getBoolEnv("AUTH_ENABLED", c.AuthEnabled)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiration = getDurationEnv("JWT_EXPIRATION", c.JWTExpiration)

	// LLM
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.LLMClassifyTimeout = getMillisEnv("LLM_CLASSIFY_TIMEOUT_MS", c.LLMClassifyTimeout)
	c.LLMRewriteTimeout = getMillisEnv("LLM_REWRITE_TIMEOUT_MS", c.LLMRewriteTimeout)
	c.LLMValidateTimeout = getMillisEnv("LLM_VALIDATE_TIMEOUT_MS", c.LLMValidateTimeout)
	c.LLMConcurrency = getIntEnv("LLM_CONCURRENCY_LIMIT", c.LLMConcurrency)

	// Intent
	c.ConfidenceAcceptLLM = getFloatEnv("CONFIDENCE_ACCEPT_LLM", c.ConfidenceAcceptLLM)
	c.ConfidenceAcceptRule = getFloatEnv("CONFIDENCE_ACCEPT_RULE", c.ConfidenceAcceptRule)
	c.IntentCacheSize = getIntEnv("INTENT_CACHE_SIZE", c.IntentCacheSize)
	c.IntentCacheEvictBatch = getIntEnv("INTENT_CACHE_EVICT_BATCH", c.IntentCacheEvictBatch)

	// Retrieval
	c.RetrieverMaxResults = getIntEnv("RETRIEVER_MAX_RESULTS", c.RetrieverMaxResults)
	c.RetrieverSpecificMax = getIntEnv("RETRIEVER_SPECIFIC_MAX", c.RetrieverSpecificMax)
	c.RetrieverVerySpecificMax = getIntEnv("RETRIEVER_VERY_SPECIFIC_MAX", c.RetrieverVerySpecificMax)

	// Cache and sessions
	c.DefaultCacheTTL = getSecondsEnv("DEFAULT_CACHE_TTL", c.DefaultCacheTTL)
	c.CacheMaxSize = getIntEnv("CACHE_MAX_SIZE", c.CacheMaxSize)
	c.SessionCacheMax = getIntEnv("SESSION_CACHE_MAX", c.SessionCacheMax)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.SessionIdleTTL = getSecondsEnv("SESSION_IDLE_TTL_SECONDS", c.SessionIdleTTL)
	c.SessionSweepInterval = getDurationEnv("SESSION_SWEEP_INTERVAL", c.SessionSweepInterval)

	// Chat
	c.ChatBudget = getDurationEnv("CHAT_BUDGET", c.ChatBudget)
	c.MaxUtteranceLength = getIntEnv("MAX_UTTERANCE_LENGTH", c.MaxUtteranceLength)
	c.MaxListedProducts = getIntEnv("MAX_LISTED_PRODUCTS", c.MaxListedProducts)

	// Catalog
	c.CatalogDir = getEnv("CATALOG_DIR", c.CatalogDir)
	c.ArtifactDir = getEnv("ARTIFACT_DIR", c.ArtifactDir)
	c.CatalogWatch = getBoolEnv("CATALOG_WATCH", c.CatalogWatch)
	c.PreloadTenants = getListEnv("PRELOAD_TENANTS", c.PreloadTenants)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.ProductsTable = getEnv("PRODUCTS_TABLE", c.ProductsTable)
	c.BusinessTable = getEnv("BUSINESS_TABLE", c.BusinessTable)
	c.TenantLoadTimeout = getDurationEnv("TENANT_LOAD_TIMEOUT", c.TenantLoadTimeout)

	// Rate limiting
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitTenantRequests = getIntEnv("RATE_LIMIT_TENANT_REQUESTS", c.RateLimitTenantRequests)
	c.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", c.RateLimitWindow)
	c.CORSOrigins = getListEnv("CORS_ORIGINS", c.CORSOrigins)

	// Logging
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	// Tracing
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.TracingEnabled = getBoolEnv("TRACING_ENABLED", c.TracingEnabled)
	c.TracingInsecure = getBoolEnv("TRACING_INSECURE", c.TracingInsecure)
	c.TracingSampleRatio = getFloatEnv("TRACING_SAMPLE_RATIO", c.TracingSampleRatio)
}

// Validate rejects sizes and timeouts that are not positive and thresholds
// outside [0,1].
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positiveDur := func(name string, v time.Duration) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, v))
		}
	}
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %g", name, v))
		}
	}

	positive("cache_max_size", c.CacheMaxSize)
	positive("session_cache_max", c.SessionCacheMax)
	positive("llm_concurrency_limit", c.LLMConcurrency)
	positive("retriever_max_results", c.RetrieverMaxResults)
	positive("retriever_specific_max", c.RetrieverSpecificMax)
	positive("retriever_very_specific_max", c.RetrieverVerySpecificMax)
	positive("intent_cache_size", c.IntentCacheSize)
	positive("intent_cache_evict_batch", c.IntentCacheEvictBatch)
	positive("max_utterance_length", c.MaxUtteranceLength)
	positive("max_listed_products", c.MaxListedProducts)
	positive("rate_limit_requests", c.RateLimitRequests)
	positive("rate_limit_tenant_requests", c.RateLimitTenantRequests)

	positiveDur("default_cache_ttl", c.DefaultCacheTTL)
	positiveDur("session_idle_ttl", c.SessionIdleTTL)
	positiveDur("llm_classify_timeout", c.LLMClassifyTimeout)
	positiveDur("llm_rewrite_timeout", c.LLMRewriteTimeout)
	positiveDur("llm_validate_timeout", c.LLMValidateTimeout)
	positiveDur("chat_budget", c.ChatBudget)
	positiveDur("rate_limit_window", c.RateLimitWindow)
	positiveDur("tenant_load_timeout", c.TenantLoadTimeout)

	unit("confidence_accept_llm", c.ConfidenceAcceptLLM)
	unit("confidence_accept_rule", c.ConfidenceAcceptRule)
	unit("tracing_sample_ratio", c.TracingSampleRatio)

	if c.IntentCacheEvictBatch > c.IntentCacheSize {
		errs = append(errs, fmt.Errorf("intent_cache_evict_batch (%d) exceeds intent_cache_size (%d)",
			c.IntentCacheEvictBatch, c.IntentCacheSize))
	}
	if c.CatalogDir == "" && c.PostgresDSN == "" {
		errs = append(errs, errors.New("either catalog_dir or postgres_dsn must be set"))
	}
	switch c.LLMProvider {
	case "", "anthropic", "openai", "gemini", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown llm_provider %q", c.LLMProvider))
	}
	return errors.Join(errs...)
}

// LLMCredentials returns the provider to use and its key. An explicit
// provider wins; otherwise the first configured key decides. "none" and a
// missing key both disable the LLM.
func (c *Config) LLMCredentials() (provider, key string) {
	keys := map[string]string{
		"anthropic": c.AnthropicAPIKey,
		"openai":    c.OpenAIAPIKey,
		"gemini":    c.GeminiAPIKey,
	}
	switch c.LLMProvider {
	case "none":
		return "", ""
	case "":
		for _, p := range []string{"gemini", "openai", "anthropic"} {
			if keys[p] != "" {
				return p, keys[p]
			}
		}
		return "", ""
	default:
		if keys[c.LLMProvider] == "" {
			return "", ""
		}
		return c.LLMProvider, keys[c.LLMProvider]
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getMillisEnv reads a plain number of milliseconds.
func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultValue
}

// getSecondsEnv reads a plain number of seconds.
func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
