package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"miniblog"`
	Password string `env:"PASSWORD" envDefault:"miniblog"`
	Name     string `env:"NAME"     envDefault:"miniblog"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains cache behaviour configuration (Redis-based).
type CacheConfig struct {
	// UnreadCountTTL is the TTL for cached unread notification counts.
	UnreadCountTTL time.Duration `env:"CACHE_UNREAD_COUNT_TTL" envDefault:"30s"`
}
