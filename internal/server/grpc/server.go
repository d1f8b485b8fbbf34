// Package grpc exposes the session operations as the
// shopkeeper.auth.v1.AuthService gRPC service.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/shopkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"google.golang.org/grpc"
)

// Sessions is the session API served over gRPC.
type Sessions interface {
	Register(ctx context.Context, email, password string) (*models.PublicUser, string, error)
	SignIn(ctx context.Context, email, password string) (*models.PublicUser, string, error)
	ResolveFromToken(ctx context.Context, token string) (*models.User, error)
	SignOut(ctx context.Context, user *models.User, token string) error
}

type GRPCServer struct {
	authv1.UnimplementedAuthServiceServer
	address  string
	sessions Sessions
	logger   logging.Logger
}

var _ authv1.AuthServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, sessions Sessions) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: sessions,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.sessionInterceptor))
	authv1.RegisterAuthServiceServer(srv, s)

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
