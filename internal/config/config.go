package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	LogLevel     string
	DatabaseURL  string // empty disables result persistence
	JWTSecret    string // empty disables bearer-token identity
	TargetLetter rune

	MaxPlayersPerSession int
}

// Load reads configuration from the environment, after sourcing an optional
// .env file. Everything has a default except DATABASE_URL and JWT_SECRET,
// which are optional features.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		TargetLetter:         'e',
		MaxPlayersPerSession: 10,
	}

	if v := os.Getenv("TARGET_LETTER"); v != "" {
		cfg.TargetLetter = []rune(v)[0]
	}
	if v := os.Getenv("MAX_PLAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 2 {
			cfg.MaxPlayersPerSession = n
		}
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
