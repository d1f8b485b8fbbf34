package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shopkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.RegisterResponse, error) {

	user, token, err := s.sessions.Register(ctx, req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := s.setToken(ctx, token); err != nil {
		return nil, err
	}

	return &authv1.RegisterResponse{User: toUser(user)}, nil
}

func (s *GRPCServer) SignIn(ctx context.Context, req *authv1.SignInRequest) (*authv1.SignInResponse, error) {

	user, token, err := s.sessions.SignIn(ctx, req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := s.setToken(ctx, token); err != nil {
		return nil, err
	}

	return &authv1.SignInResponse{User: toUser(user)}, nil
}

func (s *GRPCServer) SignOut(ctx context.Context, _ *authv1.SignOutRequest) (*authv1.SignOutResponse, error) {

	sess, ok := sessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	}

	if err := s.sessions.SignOut(ctx, sess.user, sess.token); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &authv1.SignOutResponse{}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *authv1.MeRequest) (*authv1.MeResponse, error) {

	sess, ok := sessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	}

	return &authv1.MeResponse{User: toUser(sess.user.Public())}, nil
}

// setToken sends token back in the response header.
func (s *GRPCServer) setToken(ctx context.Context, token string) error {
	if err := grpc.SetHeader(ctx, metadata.Pairs(common.AuthMetadataKey, token)); err != nil {
		s.logger.Error(ctx, "failed to set token header", "error", err)
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return nil
}

func toUser(u *models.PublicUser) *authv1.User {
	return &authv1.User{Id: u.ID, Email: u.Email}
}

// toStatus maps a service error to a gRPC status. Server faults are logged
// and reported without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var verr *common.ValidationError

	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, common.ErrorDuplicateEmail):
		return status.Error(codes.AlreadyExists, common.ErrorDuplicateEmail.Error())
	case errors.Is(err, common.ErrorBadRequest):
		return status.Error(codes.InvalidArgument, common.ErrorBadRequest.Error())
	case errors.Is(err, common.ErrorAuthenticationFailed):
		return status.Error(codes.Unauthenticated, common.ErrorAuthenticationFailed.Error())
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
