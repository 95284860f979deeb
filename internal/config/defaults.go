package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultLLMProvider  = "anthropic"
	DefaultLLMTimeout   = 60 // seconds
	DefaultLLMMaxTokens = 128
	DefaultToolTimeout  = 30 // seconds

	DefaultStoreBackend = "file"
	DefaultStorePath    = "data/registered_tools.json"
	DefaultRedisKey     = "agentforge:tools"

	DefaultElasticsearchIndex      = "agentforge-tools"
	DefaultElasticsearchMaxRetries = 3

	DefaultDuckDuckGoURL = "https://api.duckduckgo.com/"
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultPIIKeywords = []string{
	"password", "social security", "credit card",
	"bank account", "private key", "access token", "api key",
}

var (
	storeBackends = []string{"file", "postgres", "redis", "elasticsearch"}
	llmProviders  = []string{"anthropic", "openai", "gemini"}
)
