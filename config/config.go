package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Rooms    RoomsConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns        int
	ConnectAttempts int // startup pings before giving up
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	PoolSize        int
	ConnectAttempts int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// RoomsConfig holds private room settings.
type RoomsConfig struct {
	RoomPrefix        string
	MonitorPrefix     string
	UserLimit         int
	CodeAttempts      int
	ReconcileInterval time.Duration
	RequireTickets    bool // consume one ticket per created room
	EventBuffer       int  // queued voice state events before hub callers block
}

// WorkerConfig holds room cleanup worker settings.
type WorkerConfig struct {
	CleanupEnabled bool // run the cleanup processor inside the server
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "privatevc"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvInt("REDIS_DB", 0),
			PoolSize:        getEnvInt("REDIS_POOL_SIZE", 10),
			ConnectAttempts: getEnvInt("REDIS_CONNECT_ATTEMPTS", 5),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Rooms: RoomsConfig{
			RoomPrefix:        getEnv("ROOM_NAME_PREFIX", "VC-"),
			MonitorPrefix:     getEnv("MONITOR_LABEL_PREFIX", "Private VC count:"),
			UserLimit:         getEnvInt("ROOM_USER_LIMIT", 2),
			CodeAttempts:      getEnvInt("PASSCODE_ATTEMPTS", 64),
			ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 2*time.Minute),
			RequireTickets:    getEnvBool("ROOMS_REQUIRE_TICKETS", false),
			EventBuffer:       getEnvInt("VOICE_EVENT_BUFFER", 256),
		},
		Worker: WorkerConfig{
			CleanupEnabled: getEnvBool("CLEANUP_WORKER_ENABLED", true),
		},
	}
	if cfg.Rooms.UserLimit <= 0 {
		return nil, fmt.Errorf("ROOM_USER_LIMIT must be positive, got %d", cfg.Rooms.UserLimit)
	}
	if cfg.Rooms.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", cfg.Rooms.ReconcileInterval)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
