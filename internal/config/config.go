package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string `env:"API_ADDR" envDefault:":8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBUser        string `env:"DB_USER" envDefault:"postgres"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBName        string `env:"DB_NAME" envDefault:"voicecampaigns"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"./db/migrations"`

	// Dispatch service
	DispatchBaseURL string        `env:"DISPATCH_BASE_URL" envDefault:"http://localhost:9000"`
	DispatchAPIKey  string        `env:"DISPATCH_API_KEY"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"30s"`

	// Redis caches the last reconciled recipient list for retries.
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RecipientsTTL   time.Duration `env:"RECIPIENTS_CACHE_TTL" envDefault:"24h"`
	AMQPURL         string        `env:"AMQP_URL"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (if present) and then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DSN prefers DATABASE_URL and falls back to the DB_* parts.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
