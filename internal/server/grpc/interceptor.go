package grpc

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const sessionKey ctxKey = "session"

// session is the authenticated caller of a protected method.
type session struct {
	user  *models.User
	token string
}

// protectedMethods require an active token in the x-auth metadata key.
var protectedMethods = map[string]bool{
	authv1.AuthService_SignOut_FullMethodName: true,
	authv1.AuthService_Me_FullMethodName:      true,
}

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protectedMethods[info.FullMethod] {

		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AuthMetadataKey)
			if len(values) > 0 {
				token = values[0]
			}
		}
		if len(token) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		user, err := s.sessions.ResolveFromToken(ctx, token)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}

		ctx = context.WithValue(ctx, sessionKey, session{user: user, token: token})
	}

	return handler(ctx, req)
}

func sessionFromContext(ctx context.Context) (session, bool) {
	sess, ok := ctx.Value(sessionKey).(session)
	return sess, ok
}
