package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (RESOLVER_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (RESOLVER_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Redis       RedisConfig
	OpenAI      OpenAIConfig
	Resolve     ResolveConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RedisConfig controls the embedding vector cache. An empty Addr disables
// caching.
type RedisConfig struct {
	Addr     string `default:"" usage:"Redis address for the embedding cache (empty disables)" flag:"redis-addr"`
	Password string `default:"" usage:"Redis password" flag:"redis-password"`
	DB       int    `default:"0" usage:"Redis database number" flag:"redis-db"`
}

// OpenAIConfig controls the LLM-backed parser and the semantic matcher.
// An empty APIKey disables both; the engine falls back to the local parser
// and the lexical match cascade.
type OpenAIConfig struct {
	APIKey            string        `usage:"OpenAI API key (empty disables LLM parsing and semantic matching)" flag:"openai-api-key"`
	ChatModel         string        `default:"gpt-4o-mini" usage:"Chat model for order text parsing" flag:"openai-chat-model"`
	EmbeddingModel    string        `default:"text-embedding-3-small" usage:"Embedding model for semantic matching" flag:"openai-embedding-model"`
	ParseTimeout      time.Duration `default:"10s" usage:"Timeout per chat completion call" flag:"openai-parse-timeout"`
	EmbedTimeout      time.Duration `default:"5s" usage:"Timeout per embedding call" flag:"openai-embed-timeout"`
	RequestsPerSecond float64       `default:"5" usage:"Embedding request rate limit" flag:"openai-rps"`
	SemanticThreshold float64       `default:"0.7" usage:"Minimum cosine similarity for a semantic match" flag:"semantic-threshold"`
}

// ResolveConfig tunes the resolution pipeline.
type ResolveConfig struct {
	Workers int     `default:"4" usage:"Concurrent line resolution workers"`
	TaxRate float64 `default:"0.10" usage:"Tax rate applied to order subtotals" flag:"tax-rate"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RESOLVER",
		Files:     []string{"config.yaml", "/etc/order-engine/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set RESOLVER_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the RESOLVER_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.OpenAI.APIKey == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.OpenAI.APIKey = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
