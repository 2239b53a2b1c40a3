// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config agrega todos os parâmetros necessários para API e worker.
type Config struct {
	HTTPAddress string
	LogLevel    string

	// DatabaseDriver aceita "postgres" (produção) ou "sqlite" (execução local).
	DatabaseDriver   string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FilaKey           string
	ContadorKeyPrefix string
	// ContadorTTL expira os totais semanais; zero mantém as chaves para sempre.
	ContadorTTL time.Duration

	SessionStore     string
	SessionKeyPrefix string
	SessionTTL       time.Duration
	CookieName       string
	CookieSecure     bool

	RateLimitEnabled       bool
	RateLimitBackend       string
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	ObjectStorageType string
	ObjectDataDir     string
	ObjectBucket      string
	ObjectRegion      string
	ObjectEndpoint    string
	ObjectPrefix      string
	ObjectPublicBase  string

	AudioMaxBytes     int64
	AtomicVoteCounter bool
	ContestTimezone   string

	AutoMigrate bool

	WorkerMetricsAddress string
	WeekWatchInterval    time.Duration
}

func Load() (Config, error) {
	// .env é opcional; variáveis já exportadas têm prioridade.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DatabaseDriver:         getEnv("DATABASE_DRIVER", "postgres"),
		SQLitePath:             getEnv("SQLITE_PATH", "track-battle.db"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "tracks"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "tracks"),
		PostgresDB:             getEnv("POSTGRES_DB", "track_battle"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		FilaKey:                getEnv("REDIS_RECOUNT_QUEUE", "fila:recontagem"),
		ContadorKeyPrefix:      getEnv("REDIS_COUNTER_PREFIX", "contador"),
		SessionStore:           getEnv("SESSION_STORE", "redis"),
		SessionKeyPrefix:       getEnv("SESSION_KEY_PREFIX", "sessao"),
		CookieName:             getEnv("SESSION_COOKIE", "tb_session"),
		CookieSecure:           getEnvAsBool("SESSION_COOKIE_SECURE", false),
		RateLimitEnabled:       getEnvAsBool("ANTIFRAUDE_RATE_LIMIT_ENABLED", true),
		RateLimitBackend:       getEnv("ANTIFRAUDE_RATE_LIMIT_BACKEND", "redis"),
		RateLimitMaxActions:    getEnvAsInt("ANTIFRAUDE_RATE_LIMIT_MAX", 10),
		RateLimitWindowSeconds: getEnvAsInt("ANTIFRAUDE_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:     getEnv("ANTIFRAUDE_RATE_LIMIT_PREFIX", "ratelimit"),
		ObjectStorageType:      getEnv("OBJECT_STORAGE_TYPE", "fs"),
		ObjectDataDir:          getEnv("OBJECT_DATA_DIR", "data/audio"),
		ObjectBucket:           os.Getenv("OBJECT_BUCKET"),
		ObjectRegion:           getEnv("OBJECT_REGION", getEnv("AWS_REGION", "us-east-1")),
		ObjectEndpoint:         os.Getenv("OBJECT_ENDPOINT"),
		ObjectPrefix:           os.Getenv("OBJECT_PREFIX"),
		ObjectPublicBase:       os.Getenv("OBJECT_PUBLIC_BASE_URL"),
		AudioMaxBytes:          int64(getEnvAsInt("AUDIO_MAX_BYTES", 25<<20)),
		AtomicVoteCounter:      getEnvAsBool("VOTE_COUNTER_ATOMIC", false),
		ContestTimezone:        os.Getenv("CONTEST_TIMEZONE"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:   getEnv("WORKER_METRICS_ADDRESS", ":9090"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "192h"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SESSION_TTL invalido: %w", err)
	}

	cfg.ContadorTTL, err = time.ParseDuration(getEnv("REDIS_COUNTER_TTL", "1344h"))
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_COUNTER_TTL invalido: %w", err)
	}

	cfg.WeekWatchInterval, err = time.ParseDuration(getEnv("WEEK_WATCH_INTERVAL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("config: WEEK_WATCH_INTERVAL invalido: %w", err)
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("config: DATABASE_DRIVER desconhecido %q", cfg.DatabaseDriver)
	}

	if cfg.AudioMaxBytes <= 0 {
		return Config{}, fmt.Errorf("config: AUDIO_MAX_BYTES deve ser positivo")
	}

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// Mantemos o formato DSN compatível com GORM e ferramentas de migração.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
