package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DevAPIURL is where the backend listens during local development.
	DevAPIURL = "http://localhost:3000"
)

type Config struct {
	Env         string
	APIURL      string
	HTTPTimeout time.Duration

	CacheBackend string // memory | file | redis
	CacheTTL     time.Duration
	CacheFile    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool
	LogFile  string

	MetricsAddr string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Env:           strings.ToLower(strings.TrimSpace(getenv("TODO_ENV"))),
		HTTPTimeout:   10 * time.Second,
		CacheBackend:  "memory",
		CacheTTL:      30 * time.Second,
		CacheFile:     "todos.cache.json",
		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		LogLevel:      "warn",
		LogFile:       getenv("LOG_FILE"),
		MetricsAddr:   getenv("METRICS_ADDR"),
	}

	switch cfg.Env {
	case "", "dev", EnvDevelopment:
		cfg.Env = EnvDevelopment
		cfg.APIURL = DevAPIURL
		if v := strings.TrimSpace(getenv("TODO_API_URL")); v != "" {
			cfg.APIURL = v
		}
	case "prod", EnvProduction:
		cfg.Env = EnvProduction
		cfg.APIURL = strings.TrimSpace(getenv("TODO_API_URL"))
		if cfg.APIURL == "" {
			return nil, fmt.Errorf("TODO_API_URL is required when TODO_ENV=%s", EnvProduction)
		}
	default:
		return nil, fmt.Errorf("TODO_ENV: unknown environment %q", cfg.Env)
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("TODO_API_URL: not an absolute URL: %q", cfg.APIURL)
	}

	if v := getenv("TODO_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("TODO_HTTP_TIMEOUT: invalid duration %q", v)
		}
		cfg.HTTPTimeout = d
	}

	if v := strings.ToLower(strings.TrimSpace(getenv("TODO_CACHE"))); v != "" {
		switch v {
		case "memory", "file", "redis":
			cfg.CacheBackend = v
		default:
			return nil, fmt.Errorf("TODO_CACHE: unknown backend %q", v)
		}
	}
	if v := getenv("TODO_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("TODO_CACHE_TTL: invalid duration %q", v)
		}
		cfg.CacheTTL = d
	}
	if v := getenv("TODO_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}
	if cfg.CacheBackend == "redis" && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required when TODO_CACHE=redis")
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REDIS_DB: not a database index: %q", v)
		}
		cfg.RedisDB = n
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	switch strings.ToLower(getenv("LOG_FORMAT")) {
	case "", "text":
	case "json":
		cfg.LogJSON = true
	default:
		return nil, fmt.Errorf("LOG_FORMAT: expected text or json, got %q", getenv("LOG_FORMAT"))
	}

	return cfg, nil
}
