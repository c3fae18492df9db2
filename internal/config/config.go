package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           int
	DatabaseURL    string
	LogLevel       string
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	NatsURL        string
	NatsToken      string
	DataDir        string
	TopK           int
}

func Load() Config {
	return Config{
		Port:           envInt("OMNI_PORT", 8420),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		GeminiAPIKey:   envStr("GEMINI_API_KEY", ""),
		GeminiModel:    envStr("GEMINI_MODEL", "gemini-2.5-flash"),
		EmbeddingModel: envStr("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		DataDir:        envStr("OMNI_DATA_DIR", "data"),
		TopK:           envInt("OMNI_TOP_K", 5),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
