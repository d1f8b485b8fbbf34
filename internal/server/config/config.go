// Package config handles configuration for the server component: defaults,
// then a JSON overlay, then environment variables (optionally from a .env
// file), then command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"golang.org/x/crypto/bcrypt"
)

const defaultSecretKey = "secretKey"

// Config holds runtime settings for the shopkeeper server.
//
// Fields:
//   - Env: "development", "test" or "production"; selects log format and gin mode.
//   - HTTPAddr / GRPCAddr: bind addresses of the two endpoints.
//   - DatabaseDriver: "pgx" (PostgreSQL) or "sqlite".
//   - DatabaseDSN: connection string for the driver.
//   - SecretKey: HMAC secret for signing session tokens (HS256).
//   - BcryptCost: bcrypt work factor.
//   - HashConcurrency: parallel bcrypt computations; 0 means one per CPU.
//   - ShutdownTimeout: grace period for in-flight requests on stop.
type Config struct {
	Env             string
	HTTPAddr        string
	GRPCAddr        string
	DatabaseDriver  string
	DatabaseDSN     string
	SecretKey       string
	BcryptCost      int
	HashConcurrency int
	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key is insecure and is rejected in production.
func (c *Config) LoadDefaults() {
	c.Env = logging.EnvDevelopment
	c.HTTPAddr = ":3000"
	c.GRPCAddr = ":50051"
	c.DatabaseDriver = dbx.DriverSQLite
	c.DatabaseDSN = "file:shopkeeper.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.SecretKey = defaultSecretKey
	c.BcryptCost = auth.DefaultCost
	c.HashConcurrency = 0
	c.ShutdownTimeout = 5 * time.Second
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key must not be empty"))
	}
	if c.Env == logging.EnvProduction && c.SecretKey == defaultSecretKey {
		errs = append(errs, errors.New("default secret key is not allowed in production"))
	}
	if c.DatabaseDriver != dbx.DriverPostgres && c.DatabaseDriver != dbx.DriverSQLite {
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DatabaseDriver))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HashConcurrency < 0 {
		errs = append(errs, errors.New("hash concurrency must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config from args (without the program name) and the
// process environment, then validates it.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
