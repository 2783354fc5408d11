package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const minSigningKeyLength = 16

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
	StorageDriverSQLite   = "sqlite"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env           string         `yaml:"env" env:"ENV" env-required:"true"`
	StorageDriver string         `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	LockTimeout   time.Duration  `yaml:"lock_timeout" env:"LOCK_TIMEOUT" env-default:"5s"`
	Log           LogConfig      `yaml:"log"`
	HTTP          HTTPConfig     `yaml:"http"`
	JWT           JWTConfig      `yaml:"jwt"`
	Postgres      PostgresConfig `yaml:"postgres"`
	Mongo         MongoConfig    `yaml:"mongo"`
	SQLite        SQLiteConfig   `yaml:"sqlite"`
	Redis         RedisConfig    `yaml:"redis"`
}

// Validate rejects values the env tags cannot express.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMongo, StorageDriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.LockTimeout <= 0 {
		return errors.New("lock timeout must be positive")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if len(c.JWT.SigningKey) < minSigningKeyLength {
		return fmt.Errorf("jwt signing key must be at least %d bytes", minSigningKeyLength)
	}
	return nil
}

type LogConfig struct {
	// File enables a rotating log file next to stdout when set.
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"30"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"90"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	AllowOrigins    []string      `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-default:"*" env-separator:","`
}

type JWTConfig struct {
	Issuer         string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"taskboard"`
	SigningKey     string        `yaml:"signing_key" env:"JWT_SIGNING_KEY" env-required:"true"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_TOKEN_TTL" env-default:"24h"`
}

type PostgresConfig struct {
	Host           string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `yaml:"username" env:"POSTGRES_USERNAME" env-default:"postgres"`
	Password       string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Database       string        `yaml:"database" env:"POSTGRES_DATABASE" env-default:"taskboard"`
	SSLMode        string        `yaml:"ssl_mode" env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `yaml:"ping_timeout" env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE" env-default:"taskboard"`
	Transactions   bool          `yaml:"transactions" env:"MONGO_TRANSACTIONS" env-default:"true"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"taskboard.db"`
}

// RedisConfig enables the shared owner lock. Without an address the
// server coordinates only its own goroutines.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL" env-default:"30s"`
}
