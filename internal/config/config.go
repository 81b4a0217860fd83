package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr        string
	DBPath            string
	UploadPath        string
	PublicURL         string
	LogLevel          string
	LogFormat         string
	LogFile           string
	CacheBackend      string
	CacheSize         int
	CacheTTL          time.Duration
	RedisAddr         string
	FunctionsURL      string
	FunctionsAPIKey   string
	ClaudeAPIKey      string
	ClaudeModel       string
	SendGridAPIKey    string
	NotifyFrom        string
	NotifyTo          string
	JWTSecret         string
	SettingsPath      string
	PollInterval      time.Duration
	UploadConcurrency int
}

// Load reads configuration from the environment. Values from ENV_FILE (default
// ".env") are applied first without overriding variables that are already set.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "/data/propdesk.db"),
		UploadPath:      getEnv("UPLOAD_PATH", "/data/uploads"),
		PublicURL:       getEnv("PUBLIC_URL", "http://localhost:8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		LogFile:         getEnv("LOG_FILE", ""),
		CacheBackend:    getEnv("CACHE_BACKEND", "lru"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		FunctionsURL:    getEnv("FUNCTIONS_URL", ""),
		FunctionsAPIKey: getEnv("FUNCTIONS_API_KEY", ""),
		ClaudeAPIKey:    getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		NotifyFrom:      getEnv("NOTIFY_FROM", "support@propdesk.local"),
		NotifyTo:        getEnv("NOTIFY_TO", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		SettingsPath:    getEnv("SETTINGS_PATH", "/data/settings.yaml"),
	}

	var err error
	if cfg.CacheSize, err = getEnvInt("CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.UploadConcurrency, err = getEnvInt("UPLOAD_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}
