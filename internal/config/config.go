package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config хранит конфигурацию приложения.
type Config struct {
	Port        string
	Storage     string // in-memory, postgres или sqlite
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	Seed        bool

	// HideThreshold - число жалоб, после которого пост скрывается.
	HideThreshold int

	// Настройки WebSocket.
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadLimit    int64
}

// Load загружает конфигурацию из переменных окружения или использует значения по умолчанию.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Storage:       getEnv("STORAGE", "in-memory"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Seed:          getBool("SEED", false),
		HideThreshold: getInt("HIDE_THRESHOLD", 3),
		SendBuffer:    getInt("WS_SEND_BUFFER", 64),
		WriteTimeout:  getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		PingInterval:  getDuration("WS_PING_INTERVAL", 30*time.Second),
		ReadLimit:     int64(getInt("WS_READ_LIMIT", 64*1024)),
	}
}

// Validate проверяет настройки, у которых нет разумного значения по умолчанию.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case "in-memory":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL must be set for %s storage", c.Storage))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.HideThreshold < 1 {
		errs = append(errs, errors.New("hide threshold must be at least 1"))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, errors.New("send buffer must be at least 1"))
	}
	return errors.Join(errs...)
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultValue
}
