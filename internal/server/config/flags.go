package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/shopkeeper/internal/flagx"
)

// parseFlags overlays command-line flags.
//
// Supported flags (short forms):
//
//	-e string    environment (development, test, production)
//	-a string    HTTP bind address (e.g. ":3000")
//	-g string    gRPC bind address (e.g. ":50051")
//	-t string    database driver ("pgx" or "sqlite")
//	-d string    database DSN
//	-s string    token signing secret
//	-k int       bcrypt cost
//	-n int       concurrent bcrypt computations (0 = one per CPU)
//	-w duration  shutdown timeout (e.g. "5s")
//
// Only these flags are parsed; -c/-config and -env-file belong to the
// earlier stages and are filtered out by flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-e", "-a", "-g", "-t", "-d", "-s", "-k", "-n", "-w"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Env, "e", config.Env, "environment")
	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "t", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.HashConcurrency, "n", config.HashConcurrency, "concurrent password hash computations")
	fs.DurationVar(&config.ShutdownTimeout, "w", config.ShutdownTimeout, "shutdown timeout")

	return fs.Parse(args)
}
