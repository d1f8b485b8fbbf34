package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func newTestHasher(t *testing.T) *auth.BcryptHasher {
	t.Helper()
	h, err := auth.NewBcryptHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)
	return h
}

func newTestCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	c, err := auth.NewTokenCodec([]byte("test-secret"))
	require.NoError(t, err)
	return c
}

// newTestStore returns a CredentialStore over a migrated in-memory SQLite
// database private to the test.
func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := dbx.Open(ctx, dbx.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))

	return NewCredentialStore(db, rm, newTestHasher(t))
}

func newTestSessions(t *testing.T, creds Credentials) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(context.Background(), creds, newTestHasher(t), newTestCodec(t), logging.Nop{})
	require.NoError(t, err)
	return m
}
