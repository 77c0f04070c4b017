package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultAPIBaseURL = "https://dev-bruttobar.apprunner.dk"

type Config struct {
	APIBaseURL     string
	DevMode        bool
	DevProxyURL    string
	ProxyPort      string
	RequestTimeout time.Duration

	TokenStore    string // file | sqlite | redis
	TokenPath     string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string

	OrderSink    string // log | kafka
	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. envFiles are loaded first when present;
// variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	devMode, err := strconv.ParseBool(getEnv("DEV_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEV_MODE: %w", err)
	}

	dataDir := defaultDataDir()
	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", DefaultAPIBaseURL), "/"),
		DevMode:        devMode,
		DevProxyURL:    strings.TrimRight(getEnv("DEV_PROXY_URL", "http://localhost:5173"), "/"),
		ProxyPort:      getEnv("PROXY_PORT", "5173"),
		RequestTimeout: timeout,
		TokenStore:     strings.ToLower(getEnv("TOKEN_STORE", "file")),
		TokenPath:      getEnv("TOKEN_PATH", filepath.Join(dataDir, "session.json")),
		SQLitePath:     getEnv("SQLITE_PATH", filepath.Join(dataDir, "session.db")),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		OrderSink:      strings.ToLower(getEnv("ORDER_SINK", "log")),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "pos-orders"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.TokenStore {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("invalid TOKEN_STORE %q: must be file, sqlite or redis", c.TokenStore)
	}
	switch c.OrderSink {
	case "log":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when ORDER_SINK=kafka")
		}
	default:
		return fmt.Errorf("invalid ORDER_SINK %q: must be log or kafka", c.OrderSink)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// ClientBaseURL is the origin the client sends requests to. In dev mode requests go
// through the local proxy, which strips the /api prefix.
func (c *Config) ClientBaseURL() string {
	if c.DevMode {
		return c.DevProxyURL + "/api"
	}
	return c.APIBaseURL
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bruttobar")
	}
	return "."
}
