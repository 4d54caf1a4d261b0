// Package config loads the process configuration once at startup.
//
// Values are resolved in three passes: the YAML file, then environment
// variables and defaults through go-envconfig, then validation. An
// environment variable always wins; a default only fills a value that neither
// the file nor the environment supplied.
package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted in storage.datastore.type.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

type Config struct {
	Env      string         `yaml:"env"      env:"ENV, overwrite, default=development"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Log      LogConfig      `yaml:"log"`
	Identity IdentityConfig `yaml:"identity"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Security SecurityConfig `yaml:"security"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type DaemonConfig struct {
	HTTP HTTPConfig `yaml:"http"`
	JWT  JWTConfig  `yaml:"jwt"`
}

type HTTPConfig struct {
	Host      string          `yaml:"host" env:"HTTP_HOST, overwrite, default=127.0.0.1" validate:"required"`
	Port      int             `yaml:"port" env:"HTTP_PORT, overwrite, default=5000"      validate:"min=1,max=65535"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED, overwrite"`
	RPS     float64 `yaml:"rps"     env:"RATE_LIMIT_RPS, overwrite, default=20"   validate:"gt=0"`
	Burst   int     `yaml:"burst"   env:"RATE_LIMIT_BURST, overwrite, default=40" validate:"gt=0"`
}

type JWTConfig struct {
	Secret           Sensitive     `yaml:"secret"             env:"JWT_SECRET, overwrite, default=eREH6oV#&6bX&zadL%" validate:"required"`
	ExpirationTime   time.Duration `yaml:"expiration_time"    env:"JWT_EXPIRATION_TIME, overwrite, default=72h"      validate:"gt=0"`
	// nil until set; an explicit 0 disables renewals. Read it through Renewals.
	MaxRenewalAmount *int          `yaml:"max_renewal_amount" env:"JWT_MAX_RENEWAL_AMOUNT, overwrite, default=24"    validate:"required,min=0"`
}

// Renewals returns how many times a token may be renewed.
func (c JWTConfig) Renewals() int {
	if c.MaxRenewalAmount == nil {
		return 0
	}
	return *c.MaxRenewalAmount
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL, overwrite, default=info" validate:"oneof=trace debug info warn warning error"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY, overwrite"`
}

type IdentityConfig struct {
	BcryptCost     int           `yaml:"bcrypt_cost"     env:"BCRYPT_COST, overwrite, default=10"    validate:"min=4,max=31"`
	HashWorkers    int           `yaml:"hash_workers"    env:"HASH_WORKERS, overwrite, default=4"    validate:"min=1"`
	HashTimeout    time.Duration `yaml:"hash_timeout"    env:"HASH_TIMEOUT, overwrite, default=5s"   validate:"gt=0"`
	PersistTimeout time.Duration `yaml:"persist_timeout" env:"PERSIST_TIMEOUT, overwrite, default=5s" validate:"gt=0"`
}

type StorageConfig struct {
	Datastore DatastoreConfig `yaml:"datastore"`
}

type DatastoreConfig struct {
	Type           string        `yaml:"type"            env:"DB_TYPE, overwrite, default=postgres"                  validate:"oneof=postgres mongo memory"`
	Host           string        `yaml:"host"            env:"DB_HOST, overwrite, default=localhost"`
	Port           int           `yaml:"port"            env:"DB_PORT, overwrite, default=26257"                     validate:"min=1,max=65535"`
	Username       string        `yaml:"username"        env:"DB_USERNAME, overwrite, default=root"`
	Password       Sensitive     `yaml:"password"        env:"DB_PASSWORD, overwrite"`
	Database       string        `yaml:"database"        env:"DB_DATABASE, overwrite, default=template_backend"      validate:"required"`
	URI            Sensitive     `yaml:"uri"             env:"DB_URI, overwrite, default=mongodb://localhost:27017"`
	MaxConnections int           `yaml:"max_connections" env:"DB_MAX_CONNECTIONS, overwrite, default=5000"          validate:"min=1"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"    env:"DB_MAX_LIFETIME, overwrite"`
	SSL            SSLConfig     `yaml:"ssl"`
	DebugMode      bool          `yaml:"debug_mode"      env:"DB_DEBUG_MODE, overwrite"`
}

type SSLConfig struct {
	Enabled         bool   `yaml:"enabled"          env:"DB_SSL_ENABLED, overwrite"`
	CertificateFile string `yaml:"certificate_file" env:"DB_SSL_CERTIFICATE_FILE, overwrite, default=/template_backend/postgres-certs/client.crt"`
	KeyFile         string `yaml:"key_file"         env:"DB_SSL_KEY_FILE, overwrite, default=/template_backend/postgres-certs/client.key"`
}

type RedisConfig struct {
	Enabled  bool      `yaml:"enabled"  env:"REDIS_ENABLED, overwrite"`
	Addr     string    `yaml:"addr"     env:"REDIS_ADDR, overwrite, default=localhost:6379"`
	DB       int       `yaml:"db"       env:"REDIS_DB, overwrite"`
	Password Sensitive `yaml:"password" env:"REDIS_PASSWORD, overwrite"`
}

type SecurityConfig struct {
	Login LoginConfig `yaml:"login"`
}

type LoginConfig struct {
	MaxFailures int           `yaml:"max_failures" env:"LOGIN_MAX_FAILURES, overwrite, default=5" validate:"min=1"`
	Window      time.Duration `yaml:"window"       env:"LOGIN_WINDOW, overwrite, default=15m"     validate:"gt=0"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"      env:"TRACING_ENABLED, overwrite"`
	Endpoint    string `yaml:"endpoint"     env:"TRACING_ENDPOINT, overwrite, default=localhost:4318"`
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME, overwrite, default=template-backend"`
}

// Addr is the listen address of the HTTP server.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads the YAML file at path (skipped when path is empty), applies the
// process environment and defaults, and validates the result.
func Load(path string) (*Config, error) {
	return load(path, envconfig.OsLookuper())
}

func load(path string, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}
