package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"stonemarket/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port         string
	DB           DB
	JWT          JWT
	Kafka        Kafka
	Redis        Redis
	Reservations Reservations
}

type DB struct {
	database.Config
}

type JWT struct {
	Secret   string
	Issuer   string
	Audience string
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

type Reservations struct {
	// DefaultExpiry applies when a reservation is created without an
	// explicit deadline.
	DefaultExpiry time.Duration
	SweepInterval time.Duration
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		JWT: JWT{
			Secret:   getEnv("JWT_SECRET", log),
			Issuer:   getEnv("JWT_ISSUER", log),
			Audience: getEnv("JWT_AUDIENCE", log),
		},
		Kafka: Kafka{
			Enabled: getEnvDefault("KAFKA_ENABLED", "false") == "true",
			Brokers: splitList(getEnvDefault("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnvDefault("KAFKA_TOPIC", "stonemarket.events"),
		},
		Redis: Redis{
			Enabled:    getEnvDefault("REDIS_ENABLED", "false") == "true",
			Addr:       getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password:   getEnvDefault("REDIS_PASSWORD", ""),
			DB:         atoiDefault(getEnvDefault("REDIS_DB", "0"), 0),
			TTLSeconds: atoiDefault(getEnvDefault("CACHE_TTL_SECONDS", "60"), 60),
		},
		Reservations: Reservations{
			DefaultExpiry: parseDurationWithDays(getEnvDefault("RESERVATION_DEFAULT_EXPIRY", "7d")),
			SweepInterval: parseDurationWithDays(getEnvDefault("RESERVATION_SWEEP_INTERVAL", "5m")),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return def
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0
		}
		return time.Duration(days) * 24 * time.Hour
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
