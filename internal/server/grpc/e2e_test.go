package grpc

import (
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/shopkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"golang.org/x/crypto/bcrypt"
)

func newLiveServer(t *testing.T) *GRPCServer {
	t.Helper()
	ctx := context.Background()

	db, err := dbx.Open(ctx, dbx.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec([]byte("grpc-test-secret"))
	require.NoError(t, err)

	sessions, err := services.NewSessionManager(ctx, services.NewCredentialStore(db, rm, hasher), hasher, codec, logging.Nop{})
	require.NoError(t, err)

	return NewGRPCServer("", logging.Nop{}, sessions)
}

func TestAuthService_EndToEnd(t *testing.T) {
	client := startBufconn(t, newLiveServer(t))
	ctx := context.Background()

	var header metadata.MD
	registered, err := client.Register(ctx, &authv1.RegisterRequest{Email: "a@example.com", Password: "secret1"}, grpc.Header(&header))
	require.NoError(t, err)
	tokens := header.Get(common.AuthMetadataKey)
	require.Len(t, tokens, 1)
	t1 := tokens[0]

	authed := metadata.AppendToOutgoingContext(ctx, common.AuthMetadataKey, t1)
	me, err := client.Me(authed, &authv1.MeRequest{})
	require.NoError(t, err)
	assert.True(t, proto.Equal(registered.GetUser(), me.GetUser()))
	assert.Equal(t, "a@example.com", me.GetUser().GetEmail())

	_, err = client.SignOut(authed, &authv1.SignOutRequest{})
	require.NoError(t, err)

	_, err = client.Me(authed, &authv1.MeRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.Register(ctx, &authv1.RegisterRequest{Email: "a@example.com", Password: "other12"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = client.Register(ctx, &authv1.RegisterRequest{Email: "b@example.com", Password: "short"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SignIn(ctx, &authv1.SignInRequest{Email: "a@example.com", Password: "other12"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	header = nil
	_, err = client.SignIn(ctx, &authv1.SignInRequest{Email: "a@example.com", Password: "secret1"}, grpc.Header(&header))
	require.NoError(t, err)
	assert.NotEqual(t, t1, header.Get(common.AuthMetadataKey)[0])
}
