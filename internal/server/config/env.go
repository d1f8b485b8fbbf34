package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvAppEnv          = "APP_ENV"
	EnvPort            = "PORT"
	EnvHTTPAddress     = "HTTP_ADDRESS"
	EnvGRPCAddress     = "GRPC_ADDRESS"
	EnvDatabaseDriver  = "DATABASE_DRIVER"
	EnvDatabaseDSN     = "DATABASE_DSN"
	EnvJWTSecret       = "JWT_SECRET"
	EnvBcryptCost      = "BCRYPT_COST"
	EnvHashConcurrency = "HASH_CONCURRENCY"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// parseEnv overlays environment variables. Values from the dotenv file
// (-env-file, default ".env") apply only where the process environment has
// none. A missing default file is ignored.
func parseEnv(config *Config, args []string) error {
	envFile := flagx.Lookup(args, "-env-file")
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read env file: %w", err)
		}
		dotenv = map[string]string{}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	return applyEnv(config, lookup)
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvAppEnv, &config.Env)
	if port, ok := lookup(EnvPort); ok && port != "" {
		config.HTTPAddr = ":" + port
	}
	str(EnvHTTPAddress, &config.HTTPAddr)
	str(EnvGRPCAddress, &config.GRPCAddr)
	str(EnvDatabaseDriver, &config.DatabaseDriver)
	str(EnvDatabaseDSN, &config.DatabaseDSN)
	str(EnvJWTSecret, &config.SecretKey)

	for key, dst := range map[string]*int{
		EnvBcryptCost:      &config.BcryptCost,
		EnvHashConcurrency: &config.HashConcurrency,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvShutdownTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShutdownTimeout, err)
		}
		config.ShutdownTimeout = d
	}

	return nil
}
