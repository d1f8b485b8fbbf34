// Package httpapi serves the session operations over HTTP with gin.
//
//	POST   /users          register, 201 + X-Auth header
//	POST   /users/signin   sign in, 200 + X-Auth header
//	DELETE /users/signout  revoke the X-Auth token
//	GET    /users/me       the account owning the X-Auth token
//	GET    /metrics        Prometheus exposition
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Sessions is the session API served over HTTP.
type Sessions interface {
	Register(ctx context.Context, email, password string) (*models.PublicUser, string, error)
	SignIn(ctx context.Context, email, password string) (*models.PublicUser, string, error)
	ResolveFromToken(ctx context.Context, token string) (*models.User, error)
	SignOut(ctx context.Context, user *models.User, token string) error
}

type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// NewHTTPServer builds the router for env and returns a server for address.
func NewHTTPServer(address string, l logging.Logger, sessions Sessions, env string, shutdownTimeout time.Duration) *HTTPServer {
	logger := l.With("module", "http_server")
	return &HTTPServer{
		address:         address,
		handler:         NewRouter(logger, sessions, env),
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
