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
	Course   CourseConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// CourseConfig tunes the live-session engine.
type CourseConfig struct {
	TickInterval     time.Duration // reconciliation period
	IrrelevanceTTL   time.Duration // cache lifetime for irrelevance verdicts
	DefaultPause     time.Duration // pause window when a request omits duration
	QuestionPause    time.Duration // pause window opened by a PAUSE-routed question
	EndTopicLimit    int           // flushed questions per topic change
	FinalLimit       int           // flushed questions at session end
	SnapshotTopic    string        // watermill topic for the persistence pipeline
	AnswerTailLength int           // answers returned by the state endpoint
}

type AIConfig struct {
	LLMProvider string // "ollama", etc
	LLMModel    string // e.g. "llama3", "qwen2.5"
	BaseURL     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Course: CourseConfig{
			TickInterval:     getEnvAsDuration("COURSE_TICK_INTERVAL_MS", 250),
			IrrelevanceTTL:   getEnvAsDuration("IRRELEVANCE_CACHE_TTL_MS", 60_000),
			DefaultPause:     getEnvAsDuration("COURSE_DEFAULT_PAUSE_MS", 60_000),
			QuestionPause:    getEnvAsDuration("COURSE_QUESTION_PAUSE_MS", 4_500),
			EndTopicLimit:    getEnvAsInt("COURSE_END_TOPIC_LIMIT", 5),
			FinalLimit:       getEnvAsInt("COURSE_FINAL_LIMIT", 6),
			SnapshotTopic:    getEnv("COURSE_SNAPSHOT_TOPIC", "COURSE_SNAPSHOT"),
			AnswerTailLength: getEnvAsInt("COURSE_ANSWER_TAIL", 50),
		},
		Ai: AIConfig{
			LLMProvider: getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:    getEnv("LLM_MODEL", "llama3"),
			BaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
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

func getEnvAsDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}
