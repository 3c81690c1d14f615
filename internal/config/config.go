package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Mongo   MongoConfig
	Storage StorageConfig
	Usage   UsageConfig
	LLM     LLMConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Name               string
	Port               string
	Environment        string
	LogFilePath        string
	BodyLimitMB        int
	CorsAllowedOrigins string
	JWTSecret          string
	JWTExpiry          time.Duration
	NatsURL            string
	RedisURL           string
	ContextCacheTTL    time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

type StorageConfig struct {
	Driver     string // "disk" or "s3"
	Root       string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Key      string
	S3Secret   string
}

type UsageConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

type LLMConfig struct {
	OpenAI     ProviderConfig
	Together   ProviderConfig
	DeepSeek   ProviderConfig
	Perplexity ProviderConfig
	Anthropic  ProviderConfig

	AzureAPIKey     string
	AzureEndpoint   string
	AzureAPIVersion string
	AzureDeployment string

	Timeout    time.Duration
	MaxRetries int
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "ai-dms-be"),
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 50),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JWTSecret:          getEnv("JWT_SECRET", "default_secret"),
			JWTExpiry:          getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			ContextCacheTTL:    getEnvAsDuration("CONTEXT_CACHE_TTL", 30*time.Minute),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "ai_dms"),
			ConnectTimeout: getEnvAsDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:    uint64(getEnvAsInt("MONGO_MAX_POOL_SIZE", 100)),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", "disk"),
			Root:       getEnv("STORAGE_ROOT", "./core"),
			S3Bucket:   getEnv("S3_BUCKET", ""),
			S3Region:   getEnv("S3_REGION", "us-east-1"),
			S3Endpoint: getEnv("S3_ENDPOINT", ""),
			S3Key:      getEnv("S3_ACCESS_KEY", ""),
			S3Secret:   getEnv("S3_SECRET_KEY", ""),
		},
		Usage: UsageConfig{
			Driver: getEnv("USAGE_DB_DRIVER", "sqlite"),
			DSN:    getEnv("USAGE_DB_DSN", "usage.db"),
		},
		LLM: LLMConfig{
			OpenAI: ProviderConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			},
			Together: ProviderConfig{
				APIKey:  getEnv("TOGETHER_API_KEY", ""),
				BaseURL: getEnv("TOGETHER_BASE_URL", "https://api.together.xyz/v1"),
			},
			DeepSeek: ProviderConfig{
				APIKey:  getEnv("DEEPSEEK_API_KEY", ""),
				BaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			},
			Perplexity: ProviderConfig{
				APIKey:  getEnv("PERPLEXITY_API_KEY", ""),
				BaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
			},
			Anthropic: ProviderConfig{
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			},
			AzureAPIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-08-01-preview"),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 5*time.Minute),
			MaxRetries:      getEnvAsInt("LLM_MAX_RETRIES", 2),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
