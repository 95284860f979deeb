package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Environment string `json:"environment" yaml:"environment"`
	APIPrefix   string `json:"api_prefix" yaml:"api_prefix"`
	LogLevel    string `json:"log_level" yaml:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header" yaml:"api_key_header"`
	APIKeys      []string `json:"api_keys" yaml:"api_keys"`
	EnableAuth   bool     `json:"enable_auth" yaml:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	// Security
	EnablePIIDetection bool     `json:"enable_pii_detection" yaml:"enable_pii_detection"`
	PIIKeywords        []string `json:"pii_keywords" yaml:"pii_keywords"`
	EnableAuditLogging bool     `json:"enable_audit_logging" yaml:"enable_audit_logging"`
	EnableSourceTools  bool     `json:"enable_source_tools" yaml:"enable_source_tools"`

	// AI / LLM
	LLMProvider      string            `json:"llm_provider" yaml:"llm_provider"`
	AnthropicAPIKey  string            `json:"anthropic_api_key" yaml:"anthropic_api_key"`
	AnthropicBaseURL string            `json:"anthropic_base_url" yaml:"anthropic_base_url"`
	OpenAIAPIKey     string            `json:"openai_api_key" yaml:"openai_api_key"`
	OpenAIBaseURL    string            `json:"openai_base_url" yaml:"openai_base_url"`
	GeminiAPIKey     string            `json:"gemini_api_key" yaml:"gemini_api_key"`
	ModelList        map[string]string `json:"model_list" yaml:"model_list"` // provider -> model ID
	LLMTimeout       int               `json:"llm_timeout" yaml:"llm_timeout"`
	LLMMaxTokens     int               `json:"llm_max_tokens" yaml:"llm_max_tokens"`
	ToolTimeout      int               `json:"tool_timeout" yaml:"tool_timeout"`

	// Tool record store
	StoreBackend             string   `json:"store_backend" yaml:"store_backend"`
	StorePath                string   `json:"store_path" yaml:"store_path"`
	PostgresDSN              string   `json:"postgres_dsn" yaml:"postgres_dsn"`
	RedisURL                 string   `json:"redis_url" yaml:"redis_url"`
	RedisKey                 string   `json:"redis_key" yaml:"redis_key"`
	ElasticsearchAddresses   []string `json:"elasticsearch_addresses" yaml:"elasticsearch_addresses"`
	ElasticsearchUser        string   `json:"elasticsearch_user" yaml:"elasticsearch_user"`
	ElasticsearchPassword    string   `json:"elasticsearch_password" yaml:"elasticsearch_password"`
	ElasticsearchIndex       string   `json:"elasticsearch_index" yaml:"elasticsearch_index"`
	ElasticsearchVerifyCerts bool     `json:"elasticsearch_verify_certs" yaml:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int      `json:"elasticsearch_max_retries" yaml:"elasticsearch_max_retries"`

	// Web search
	TavilyAPIKey  string `json:"tavily_api_key" yaml:"tavily_api_key"`
	DuckDuckGoURL string `json:"duckduckgo_url" yaml:"duckduckgo_url"`
}

// Load builds the configuration from defaults, the optional file named by
// AGENTFORGE_CONFIG, a .env file outside production and the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		APIPrefix:                DefaultAPIPrefix,
		LogLevel:                 DefaultLogLevel,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		EnableAuth:               true,
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
		EnablePIIDetection:       true,
		PIIKeywords:              DefaultPIIKeywords,
		EnableAuditLogging:       true,
		LLMProvider:              DefaultLLMProvider,
		ModelList:                make(map[string]string),
		LLMTimeout:               DefaultLLMTimeout,
		LLMMaxTokens:             DefaultLLMMaxTokens,
		ToolTimeout:              DefaultToolTimeout,
		StoreBackend:             DefaultStoreBackend,
		StorePath:                DefaultStorePath,
		RedisKey:                 DefaultRedisKey,
		ElasticsearchIndex:       DefaultElasticsearchIndex,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		DuckDuckGoURL:            DefaultDuckDuckGoURL,
	}

	if path := getEnv("AGENTFORGE_CONFIG", ""); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if env := getEnv("ENVIRONMENT", cfg.Environment); env != "production" {
		// Existing environment variables win over .env entries.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(err, "load .env")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	return errors.Wrapf(err, "parse config %s", path)
}

func applyEnvOverrides(cfg *Config) {
	envString(&cfg.Host, "AGENTFORGE_HOST")
	envInt(&cfg.Port, "AGENTFORGE_PORT", "PORT")
	envString(&cfg.Environment, "AGENTFORGE_ENV", "ENVIRONMENT")
	envString(&cfg.APIPrefix, "AGENTFORGE_API_PREFIX")
	envString(&cfg.LogLevel, "AGENTFORGE_LOG_LEVEL", "LOG_LEVEL")
	envList(&cfg.CORSOrigins, "AGENTFORGE_CORS_ORIGINS")
	envList(&cfg.APIKeys, "AGENTFORGE_API_KEYS")
	envBool(&cfg.EnableAuth, "ENABLE_AUTH")
	envInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	envBool(&cfg.EnablePIIDetection, "ENABLE_PII_DETECTION")
	envList(&cfg.PIIKeywords, "PII_KEYWORDS")
	envBool(&cfg.EnableAuditLogging, "ENABLE_AUDIT_LOGGING")
	envBool(&cfg.EnableSourceTools, "ENABLE_SOURCE_TOOLS")

	envString(&cfg.LLMProvider, "LLM_PROVIDER")
	envString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envString(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	envString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envString(&cfg.GeminiAPIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if v := getEnv("LLM_MODEL", ""); v != "" {
		if cfg.ModelList == nil {
			cfg.ModelList = make(map[string]string)
		}
		cfg.ModelList[cfg.LLMProvider] = v
	}
	envInt(&cfg.LLMTimeout, "LLM_TIMEOUT")
	envInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	envInt(&cfg.ToolTimeout, "TOOL_TIMEOUT")

	envString(&cfg.StoreBackend, "STORE_BACKEND")
	envString(&cfg.StorePath, "STORE_PATH")
	envString(&cfg.PostgresDSN, "POSTGRES_DSN", "DATABASE_URL")
	envString(&cfg.RedisURL, "REDIS_URL")
	envString(&cfg.RedisKey, "REDIS_KEY")
	envList(&cfg.ElasticsearchAddresses, "ELASTICSEARCH_ADDRESSES")
	envString(&cfg.ElasticsearchUser, "ELASTICSEARCH_USER")
	envString(&cfg.ElasticsearchPassword, "ELASTICSEARCH_PASSWORD")
	envString(&cfg.ElasticsearchIndex, "ELASTICSEARCH_INDEX")
	envBool(&cfg.ElasticsearchVerifyCerts, "ELASTICSEARCH_VERIFY_CERTS")

	envString(&cfg.TavilyAPIKey, "TAVILY_API_KEY")
	envString(&cfg.DuckDuckGoURL, "DUCKDUCKGO_URL")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Newf("invalid port %d", c.Port)
	}
	if !slices.Contains(storeBackends, c.StoreBackend) {
		return errors.Newf("unknown store backend %q (want one of %s)", c.StoreBackend, strings.Join(storeBackends, ", "))
	}
	if !slices.Contains(llmProviders, c.LLMProvider) {
		return errors.Newf("unknown llm provider %q (want one of %s)", c.LLMProvider, strings.Join(llmProviders, ", "))
	}
	switch c.StoreBackend {
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("postgres store requires POSTGRES_DSN")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("redis store requires REDIS_URL")
		}
	case "elasticsearch":
		if len(c.ElasticsearchAddresses) == 0 {
			return errors.New("elasticsearch store requires ELASTICSEARCH_ADDRESSES")
		}
	}
	return nil
}

// LLMAPIKey returns the key for the selected provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.AnthropicAPIKey
	}
}

// LLMBaseURL returns the endpoint override for the selected provider.
func (c *Config) LLMBaseURL() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIBaseURL
	case "anthropic":
		return c.AnthropicBaseURL
	}
	return ""
}

func (c *Config) LLMTimeoutDuration() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

func (c *Config) ToolTimeoutDuration() time.Duration {
	return time.Duration(c.ToolTimeout) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func lookup(keys []string) (string, bool) {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v, true
		}
	}
	return "", false
}

func envString(dst *string, keys ...string) {
	if v, ok := lookup(keys); ok {
		*dst = v
	}
}

func envInt(dst *int, keys ...string) {
	if v, ok := lookup(keys); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, keys ...string) {
	if v, ok := lookup(keys); ok {
		*dst = v == "true" || v == "1"
	}
}

func envList(dst *[]string, keys ...string) {
	v, ok := lookup(keys)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}
