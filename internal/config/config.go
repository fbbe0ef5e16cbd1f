package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// IdentitySource selects where the launch identity and community key come from.
// It also fixes the roster endpoint, the key field sent with the alert and the
// close delay of the host view.
type IdentitySource string

const (
	// SourceTelegram reads the user and chat id from the WebApp launch data.
	SourceTelegram IdentitySource = "telegram"
	// SourceURL reads comunidad and user_id from the launch URL query.
	SourceURL IdentitySource = "url"
)

func ParseIdentitySource(s string) (IdentitySource, error) {
	switch IdentitySource(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceTelegram:
		return SourceTelegram, nil
	case SourceURL:
		return SourceURL, nil
	}
	return "", fmt.Errorf("unknown identity source %q", s)
}

// KeyField is the JSON field carrying the community key in the alert payload.
func (s IdentitySource) KeyField() string {
	if s == SourceURL {
		return "comunidad"
	}
	return "chat_id"
}

// RequiresMember reports whether alerts can only be sent once a roster
// member has been attributed to the user.
func (s IdentitySource) RequiresMember() bool {
	return s == SourceURL
}

// CloseDelay is how long the host view stays open after a successful alert.
func (s IdentitySource) CloseDelay() time.Duration {
	if s == SourceURL {
		return 2 * time.Second
	}
	return 0
}

// SelectionFallback decides what happens when the identity is not in the roster.
type SelectionFallback string

const (
	FallbackFirst SelectionFallback = "first"
	FallbackNone  SelectionFallback = "none"
)

func ParseSelectionFallback(s string) (SelectionFallback, error) {
	switch SelectionFallback(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackFirst:
		return FallbackFirst, nil
	case FallbackNone:
		return FallbackNone, nil
	}
	return "", fmt.Errorf("unknown selection fallback %q", s)
}

type RedisConfig struct {
	Addr        string
	User        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type Config struct {
	BackendURL string
	Source     IdentitySource
	Fallback   SelectionFallback
	BotToken   string
	GeoURL     string
	LogLevel   logrus.Level
	Redis      RedisConfig
}

const DefaultBackendURL = "http://localhost:8080"

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	source, err := ParseIdentitySource(os.Getenv("IDENTITY_SOURCE"))
	if err != nil {
		return nil, err
	}
	fallback, err := ParseSelectionFallback(os.Getenv("SELECTION_FALLBACK"))
	if err != nil {
		return nil, err
	}
	level := logrus.InfoLevel
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		level, err = logrus.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("bad LOG_LEVEL: %w", err)
		}
	}

	cfg := &Config{
		BackendURL: GetBackendURL(),
		Source:     source,
		Fallback:   fallback,
		BotToken:   strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		GeoURL:     strings.TrimSpace(os.Getenv("GEO_URL")),
		LogLevel:   level,
		Redis:      GetRedisConfig(),
	}
	return cfg, nil
}

func GetBackendURL() string {
	u := strings.TrimSpace(os.Getenv("BACKEND_URL"))
	if u == "" {
		return DefaultBackendURL
	}
	return strings.TrimRight(u, "/")
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		User:        os.Getenv("REDIS_USER"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          envInt("REDIS_DB"),
		MaxRetries:  envInt("REDIS_MAX_RETRIES"),
		DialTimeout: envDuration("REDIS_DIAL_TIMEOUT"),
		Timeout:     envDuration("REDIS_TIMEOUT"),
	}
}

func envInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
