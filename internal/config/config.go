package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from DB_*.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type EventsConfig struct {
	Backend      string // "kafka", "memory" or "none"
	KafkaBrokers []string
	TopicPrefix  string
}

type SessionConfig struct {
	StaleAfter          time.Duration
	LockTTL             time.Duration
	MinQuestions        int
	MaxQuestions        int
	ConfidenceThreshold float64
	InitialDifficulty   float64
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string
	Casdoor  CasdoorConfig
	Events   EventsConfig
	Session  SessionConfig

	MetricsEnabled bool
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getenvDefault("PORT", "8080"),
		Environment: getenvDefault("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getenvDefault("LOG_LEVEL", "info")),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Host:         getenvDefault("DB_HOST", "localhost"),
			Port:         getenvDefault("DB_PORT", "5432"),
			User:         getenvDefault("DB_USER", "postgres"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         getenvDefault("DB_NAME", "adaptive_assessment"),
			SSLMode:      getenvDefault("DB_SSLMODE", "disable"),
			MaxOpenConns: getenvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getenvInt("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:  getenvBool("DB_AUTO_MIGRATE", false),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: getenvDefault("CASDOOR_ORGANIZATION", "built-in"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Events: EventsConfig{
			Backend:      getenvDefault("EVENTS_BACKEND", "memory"),
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			TopicPrefix:  getenvDefault("EVENTS_TOPIC_PREFIX", "assessment"),
		},
		MetricsEnabled: getenvBool("METRICS_ENABLED", true),
	}

	var err error
	if cfg.Database.ConnMaxLifetime, err = getenvDuration("DB_CONN_MAX_LIFETIME", time.Hour); err != nil {
		return nil, err
	}

	cfg.Session = SessionConfig{
		MinQuestions:        getenvInt("SESSION_MIN_QUESTIONS", 5),
		MaxQuestions:        getenvInt("SESSION_MAX_QUESTIONS", 20),
		ConfidenceThreshold: getenvFloat("SESSION_CONFIDENCE_THRESHOLD", 0.8),
		InitialDifficulty:   getenvFloat("SESSION_INITIAL_DIFFICULTY", 0.5),
	}
	if cfg.Session.StaleAfter, err = getenvDuration("SESSION_STALE_AFTER", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.LockTTL, err = getenvDuration("SESSION_LOCK_TTL", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	switch c.Events.Backend {
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("config: KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("config: unknown EVENTS_BACKEND %q", c.Events.Backend)
	}
	s := c.Session
	if s.MinQuestions < 1 || s.MaxQuestions < s.MinQuestions {
		return fmt.Errorf("config: session question bounds invalid (min=%d, max=%d)", s.MinQuestions, s.MaxQuestions)
	}
	if s.ConfidenceThreshold <= 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: SESSION_CONFIDENCE_THRESHOLD must be in (0, 1]")
	}
	if s.InitialDifficulty < 0 || s.InitialDifficulty > 1 {
		return fmt.Errorf("config: SESSION_INITIAL_DIFFICULTY must be in [0, 1]")
	}
	if s.StaleAfter <= 0 {
		return fmt.Errorf("config: SESSION_STALE_AFTER must be positive")
	}
	return nil
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(k string, fallback float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(k string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid duration: %w", k, v, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
