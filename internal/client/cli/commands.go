package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/client/client"
	"github.com/dmitrijs2005/shopkeeper/internal/client/session"
	"github.com/spf13/cobra"
)

type credentialsOptions struct {
	email string
}

func newRegisterCmd(g *globalOptions) *cobra.Command {
	opts := &credentialsOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCredentials(cmd, g, opts, "Registered", AuthClient.Register)
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "account email (prompted when empty)")

	return cmd
}

func newSignInCmd(g *globalOptions) *cobra.Command {
	opts := &credentialsOptions{}

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and print a new session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCredentials(cmd, g, opts, "Signed in", AuthClient.SignIn)
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "account email (prompted when empty)")

	return cmd
}

func newWhoAmICmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account owning the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withSession(ctx, g, func(s sessionStore) error {
				token, err := resolveToken(ctx, g, s)
				if err != nil {
					return err
				}
				return withClient(g, token, func(c AuthClient) error {
					u, err := c.Me(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.ID, u.Email)
					return nil
				})
			})
		},
	}
}

func newSignOutCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Revoke the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withSession(ctx, g, func(s sessionStore) error {
				token, err := resolveToken(ctx, g, s)
				if err != nil {
					return err
				}

				err = withClient(g, token, func(c AuthClient) error {
					return c.SignOut(ctx)
				})
				// a token the server no longer accepts is useless locally too
				if err != nil && !errors.Is(err, client.ErrUnauthorized) {
					return err
				}

				if stored, gerr := s.Get(ctx, session.KeyToken); gerr == nil && stored == token {
					if cerr := s.Clear(ctx); cerr != nil {
						return cerr
					}
				}
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

type credentialsFunc func(c AuthClient, ctx context.Context, email, password string) (*client.User, error)

// runCredentials collects email and password, calls fn, remembers the new
// token and prints it.
func runCredentials(cmd *cobra.Command, g *globalOptions, opts *credentialsOptions, verb string, fn credentialsFunc) error {
	ctx := cmd.Context()

	email := opts.email
	if email == "" {
		var err error
		email, err = promptLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Email: ")
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}

	password, err := promptPassword(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	return withSession(ctx, g, func(s sessionStore) error {
		return withClient(g, "", func(c AuthClient) error {
			u, err := fn(c, ctx, email, password)
			if err != nil {
				return err
			}

			if err := s.Set(ctx, session.KeyToken, c.Token()); err != nil {
				return err
			}
			if err := s.Set(ctx, session.KeyEmail, u.Email); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, u.Email, u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", EnvToken, c.Token())
			return nil
		})
	})
}
