// Package postgres is the gorm-backed user store.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings required to open the datastore.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Database       string
	MaxConnections int
	MaxLifetime    time.Duration
	SSL            bool
	CertFile       string
	KeyFile        string
	Debug          bool
	Timeout        time.Duration
}

// DSN renders cfg as a postgres connection URL.
func (cfg Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	} else if cfg.Username != "" {
		u.User = url.User(cfg.Username)
	}

	q := url.Values{}
	if cfg.SSL {
		q.Set("sslmode", "verify-full")
		q.Set("sslcert", cfg.CertFile)
		q.Set("sslkey", cfg.KeyFile)
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens the pool, applies the pool limits and verifies connectivity
// with a ping.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log, cfg.Debug),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "postgres sql.DB")
	}
	if cfg.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

// Migrate creates or updates the users, roles and user_roles tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&roleModel{}, &userModel{}, &userRoleModel{}); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
