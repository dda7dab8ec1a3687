package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Temporal TemporalConfig
	S3       S3Config
	Qdrant   QdrantConfig
	LLM      LLMConfig
	Memory   MemoryConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AccessToken  string
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Enabled reports whether a postgres host is configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

type TemporalConfig struct {
	Host      string
	Port      int
	Namespace string
	TaskQueue string
}

func (c TemporalConfig) Enabled() bool { return c.Host != "" }

type S3Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
	URLExpiry time.Duration
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
}

func (c QdrantConfig) Enabled() bool { return c.Host != "" }

type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	Timeout        time.Duration
}

type MemoryConfig struct {
	LastMessages int
	RecallTopK   int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			Mode:         getEnv("GIN_MODE", "debug"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			AccessToken:  getEnv("SERVER_ACCESS_TOKEN", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "agent_relay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Temporal: TemporalConfig{
			Host:      getEnv("TEMPORAL_HOST", ""),
			Port:      getEnvAsInt("TEMPORAL_PORT", 7233),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnv("TEMPORAL_TASK_QUEUE", "workflow-runs"),
		},
		S3: S3Config{
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Prefix:    getEnv("S3_PREFIX", "runs/"),
			URLExpiry: getEnvAsDuration("S3_URL_EXPIRY", 15*time.Minute),
		},
		Qdrant: QdrantConfig{
			Host:       getEnv("QDRANT_HOST", ""),
			Port:       getEnvAsInt("QDRANT_PORT", 6334),
			Collection: getEnv("QDRANT_COLLECTION", "agent_memory"),
		},
		LLM: LLMConfig{
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         getEnv("LLM_API_KEY", ""),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			MaxRetries:     getEnvAsInt("LLM_MAX_RETRIES", 2),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
		},
		Memory: MemoryConfig{
			LastMessages: getEnvAsInt("MEMORY_LAST_MESSAGES", 10),
			RecallTopK:   getEnvAsInt("MEMORY_RECALL_TOP_K", 3),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
