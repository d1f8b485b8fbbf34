package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// User is the public account view returned by the server.
type User struct {
	ID    string
	Email string
}

// GRPCClient is not safe for concurrent use: the token is replaced by
// Register and SignIn and cleared by SignOut.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      authv1.AuthServiceClient
	token       string
}

func withToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthMetadataKey, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.token != "" {
		ctx = withToken(ctx, s.token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a lazy connection to endpointURL. token may be
// empty. Extra dial options are appended after the defaults.
func NewGRPCClient(endpointURL, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, token: token}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.tokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = authv1.NewAuthServiceClient(conn)
	return c, nil
}

// Token returns the current session token, empty when signed out.
func (s *GRPCClient) Token() string {
	return s.token
}

func (s *GRPCClient) Register(ctx context.Context, email, password string) (*User, error) {
	return s.authenticate(func(opts ...grpc.CallOption) (*authv1.User, error) {
		resp, err := s.client.Register(ctx, &authv1.RegisterRequest{Email: email, Password: password}, opts...)
		return resp.GetUser(), err
	})
}

func (s *GRPCClient) SignIn(ctx context.Context, email, password string) (*User, error) {
	return s.authenticate(func(opts ...grpc.CallOption) (*authv1.User, error) {
		resp, err := s.client.SignIn(ctx, &authv1.SignInRequest{Email: email, Password: password}, opts...)
		return resp.GetUser(), err
	})
}

// authenticate performs call and keeps the token from the response header.
func (s *GRPCClient) authenticate(call func(opts ...grpc.CallOption) (*authv1.User, error)) (*User, error) {
	var header metadata.MD

	u, err := call(grpc.Header(&header))
	if err != nil {
		return nil, mapError(err)
	}

	tokens := header.Get(common.AuthMetadataKey)
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, ErrNoToken
	}
	s.token = tokens[0]

	return fromProto(u), nil
}

// SignOut revokes the current token on the server and forgets it locally.
func (s *GRPCClient) SignOut(ctx context.Context) error {
	if _, err := s.client.SignOut(ctx, &authv1.SignOutRequest{}); err != nil {
		return mapError(err)
	}
	s.token = ""
	return nil
}

func (s *GRPCClient) Me(ctx context.Context) (*User, error) {
	resp, err := s.client.Me(ctx, &authv1.MeRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return fromProto(resp.GetUser()), nil
}

func fromProto(u *authv1.User) *User {
	return &User{ID: u.GetId(), Email: u.GetEmail()}
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable:
		return ErrUnavailable
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.Unauthenticated:
		if st.Message() == common.ErrorAuthenticationFailed.Error() {
			return ErrAuthenticationFailed
		}
		return ErrUnauthorized
	default:
		return err
	}
}
