package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newLiveRouter(t *testing.T) http.Handler {
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
	codec, err := auth.NewTokenCodec([]byte("http-test-secret"))
	require.NoError(t, err)

	sessions, err := services.NewSessionManager(ctx, services.NewCredentialStore(db, rm, hasher), hasher, codec, logging.Nop{})
	require.NoError(t, err)

	return NewRouter(logging.Nop{}, sessions, logging.EnvTest)
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthHeaderName, token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestUsers_RegisterSignOutFlow(t *testing.T) {
	h := newLiveRouter(t)

	w := do(t, h, http.MethodPost, "/users", `{"email":"a@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	t1 := w.Header().Get(common.AuthHeaderName)
	require.NotEmpty(t, t1)
	assert.NotContains(t, w.Body.String(), "password")

	w = do(t, h, http.MethodGet, "/users/me", "", t1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@example.com"`)

	w = do(t, h, http.MethodDelete, "/users/signout", "", t1)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/users/me", "", t1)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodDelete, "/users/signout", "", t1)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a revoked token cannot sign out again")
}

func TestUsers_DuplicateAndSignIn(t *testing.T) {
	h := newLiveRouter(t)

	w := do(t, h, http.MethodPost, "/users", `{"email":"a@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPost, "/users", `{"email":"a@example.com","password":"other12"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/users/signin", `{"email":"a@example.com","password":"other12"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/users/signin", `{"email":"ghost@example.com","password":"other12"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/users/signin", `{"email":"not-an-email","password":"secret1"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/users/signin", `{"email":"a@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(common.AuthHeaderName))
}

func TestUsers_RegisterValidation(t *testing.T) {
	h := newLiveRouter(t)

	w := do(t, h, http.MethodPost, "/users", `{"email":"nope","password":"123"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"message":"validation error","fields":{
		"email":"nope is not a valid email",
		"password":"must be at least 6 characters"}}}`, w.Body.String())
}
