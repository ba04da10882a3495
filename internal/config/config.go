package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Keys     APIKeys
	Ai       AIConfig
	Chat     ChatConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type MongoConfig struct {
	URI      string
	Database string
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
}

type AIConfig struct {
	LLMProvider    string // "gemini", "ollama" or "huggingface"
	LLMModel       string
	OllamaBaseURL  string
	Timeout        time.Duration
	MaxTokens      int
	Temperature    float64
	TitleMaxTokens int
}

// ChatConfig bounds the conversation flow.
type ChatConfig struct {
	HistoryWindow     int // most recent messages kept in the prompt, 0 = unlimited
	HistoryCharBudget int // rendered history budget in characters, 0 = unlimited
	StoreTimeout      time.Duration
	StoreDriver       string // "mongo" or "memory"
	EventsTopic       string
}

type CacheConfig struct {
	Driver string // "memory" or "redis"
	TTL    time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "study_assistant"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:       getEnv("LLM_MODEL", "gemini-1.5-flash"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 1024),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			TitleMaxTokens: getEnvAsInt("TITLE_MAX_TOKENS", 32),
		},
		Chat: ChatConfig{
			HistoryWindow:     getEnvAsInt("CHAT_HISTORY_WINDOW", 20),
			HistoryCharBudget: getEnvAsInt("CHAT_HISTORY_CHAR_BUDGET", 12000),
			StoreTimeout:      getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
			StoreDriver:       getEnv("CHAT_STORE_DRIVER", "mongo"),
			EventsTopic:       getEnv("CHAT_EVENTS_TOPIC", "CHAT_EXCHANGE_COMPLETED"),
		},
		Cache: CacheConfig{
			Driver: getEnv("TRANSCRIPT_CACHE_DRIVER", "memory"),
			TTL:    getEnvAsDuration("TRANSCRIPT_CACHE_TTL", 10*time.Minute),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("30s", "2m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
