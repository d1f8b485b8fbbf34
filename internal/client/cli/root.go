// Package cli implements the shopkeeper command-line client on cobra.
//
//	shopkeeper register [--email EMAIL]
//	shopkeeper signin   [--email EMAIL]
//	shopkeeper whoami
//	shopkeeper signout
//
// register and signin print the session token and remember it in a local
// session file. --token or the SHOPKEEPER_TOKEN environment variable take
// precedence over the remembered token.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/shopkeeper/internal/client/client"
	"github.com/dmitrijs2005/shopkeeper/internal/client/session"
	"github.com/spf13/cobra"
)

// EnvToken is the environment variable holding the default --token value.
const EnvToken = "SHOPKEEPER_TOKEN"

const defaultServer = "localhost:50051"

var errNotSignedIn = errors.New("not signed in: run signin, pass --token or set " + EnvToken)

// AuthClient is the subset of client.GRPCClient the commands use.
type AuthClient interface {
	Register(ctx context.Context, email, password string) (*client.User, error)
	SignIn(ctx context.Context, email, password string) (*client.User, error)
	SignOut(ctx context.Context) error
	Me(ctx context.Context) (*client.User, error)
	Token() string
	Close() error
}

// dial is a seam for tests.
var dial = func(server, token string) (AuthClient, error) {
	return client.NewGRPCClient(server, token)
}

// sessionStore remembers the last sign-in between invocations.
type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
	Close() error
}

// openSession is a seam for tests. An empty path means session.DefaultPath.
var openSession = func(ctx context.Context, path string) (sessionStore, error) {
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return session.Open(ctx, path)
}

// globalOptions holds the persistent flags shared by all subcommands.
type globalOptions struct {
	server      string
	token       string
	sessionFile string
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "shopkeeper",
		Short:         "Shopkeeper account client",
		Long:          `Register, sign in and manage sessions on a shopkeeper server over gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "gRPC server address")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv(EnvToken), "session token (default $"+EnvToken+" or the remembered token)")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "local session file (default <config dir>/shopkeeper/session.db)")

	cmd.AddCommand(newRegisterCmd(opts))
	cmd.AddCommand(newSignInCmd(opts))
	cmd.AddCommand(newWhoAmICmd(opts))
	cmd.AddCommand(newSignOutCmd(opts))

	return cmd
}

// withClient dials the server with token, runs fn and closes the connection.
func withClient(opts *globalOptions, token string, fn func(AuthClient) error) error {
	c, err := dial(opts.server, token)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}

// withSession opens the session file, runs fn and closes the file.
func withSession(ctx context.Context, opts *globalOptions, fn func(sessionStore) error) error {
	s, err := openSession(ctx, opts.sessionFile)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// resolveToken returns the explicit token, falling back to the remembered one.
func resolveToken(ctx context.Context, opts *globalOptions, s sessionStore) (string, error) {
	if opts.token != "" {
		return opts.token, nil
	}
	token, err := s.Get(ctx, session.KeyToken)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errNotSignedIn
	}
	return token, nil
}
