package config

import (
	"log"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds the HTTP server and engine settings read from the
// environment.
type ServerConfig struct {
	Port        string
	AdapterType string
	LockTimeout time.Duration
	LogLevel    string
}

// LoadDotEnv seeds the process environment from a .env file when one exists.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using process environment")
	}
}

// LoadServerConfig reads the server configuration from the environment:
// PORT, ADAPTER_TYPE (pgx.pool | sql.db | sqlx.db), LOCK_TIMEOUT_MS, LOG_LEVEL.
func LoadServerConfig() ServerConfig {
	const defaultLockTimeoutMS = 3000

	lockTimeoutMS := defaultLockTimeoutMS
	if raw := envOrDefault("LOCK_TIMEOUT_MS", ""); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			log.Fatal("Invalid LOCK_TIMEOUT_MS value: ", raw)
		}
		lockTimeoutMS = parsed
	}

	return ServerConfig{
		Port:        envOrDefault("PORT", "8080"),
		AdapterType: envOrDefault("ADAPTER_TYPE", "pgx.pool"),
		LockTimeout: time.Duration(lockTimeoutMS) * time.Millisecond,
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
	}
}
