package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCredentials fails the test on any call that has no stub.
type fakeCredentials struct {
	t *testing.T

	findByEmail func(ctx context.Context, email string) (*models.User, error)
	findByID    func(ctx context.Context, id string) (*models.User, error)
	appendToken func(ctx context.Context, userID, token, purpose string) error
}

func (f *fakeCredentials) CreateWithToken(context.Context, string, string, string, func(*models.User) (string, error)) (*models.User, error) {
	f.t.Fatal("unexpected CreateWithToken")
	return nil, nil
}

func (f *fakeCredentials) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findByEmail == nil {
		f.t.Fatal("unexpected FindByEmail")
	}
	return f.findByEmail(ctx, email)
}

func (f *fakeCredentials) FindByID(ctx context.Context, id string) (*models.User, error) {
	if f.findByID == nil {
		f.t.Fatal("unexpected FindByID")
	}
	return f.findByID(ctx, id)
}

func (f *fakeCredentials) AppendToken(ctx context.Context, userID, token, purpose string) error {
	if f.appendToken == nil {
		f.t.Fatal("unexpected AppendToken")
	}
	return f.appendToken(ctx, userID, token, purpose)
}

func (f *fakeCredentials) RemoveToken(context.Context, string, string) error {
	f.t.Fatal("unexpected RemoveToken")
	return nil
}

func TestSessions_RegisterResolveSignOut(t *testing.T) {
	store := newTestStore(t)
	m := newTestSessions(t, store)
	ctx := context.Background()

	pub, t1, err := m.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", pub.Email)
	assert.NotEmpty(t, pub.ID)
	assert.NotEmpty(t, t1)

	user, err := m.ResolveFromToken(ctx, t1)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, user.ID)

	require.NoError(t, m.SignOut(ctx, user, t1))

	_, err = m.ResolveFromToken(ctx, t1)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	require.NoError(t, m.SignOut(ctx, user, t1), "sign-out is idempotent")
}

func TestSessions_RegisterDuplicate(t *testing.T) {
	store := newTestStore(t)
	m := newTestSessions(t, store)
	ctx := context.Background()

	first, _, err := m.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, tok, err := m.Register(ctx, "a@example.com", "other12")
	require.ErrorIs(t, err, common.ErrorDuplicateEmail)
	assert.Empty(t, tok)

	stored, err := store.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Len(t, stored.Tokens, 1)

	ok, err := store.hasher.Verify(ctx, "secret1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessions_RegisterValidationPassesThrough(t *testing.T) {
	m := newTestSessions(t, newTestStore(t))

	_, _, err := m.Register(context.Background(), "bad", "secret1")
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

// failingSigner verifies tokens but cannot sign them.
type failingSigner struct {
	*auth.TokenCodec
}

func (failingSigner) Sign(auth.Claims) (string, error) {
	return "", errors.New("signer unavailable")
}

func TestSessions_RegisterFailureLeavesNoAccount(t *testing.T) {
	store := newTestStore(t)
	m, err := NewSessionManager(context.Background(), store, newTestHasher(t), failingSigner{newTestCodec(t)}, logging.Nop{})
	require.NoError(t, err)
	ctx := context.Background()

	pub, tok, err := m.Register(ctx, "a@example.com", "secret1")
	require.Error(t, err)
	assert.Nil(t, pub)
	assert.Empty(t, tok)

	_, err = store.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// the email stays free for a later attempt
	_, _, err = newTestSessions(t, store).Register(ctx, "a@example.com", "secret1")
	assert.NoError(t, err)
}

func TestSessions_RegisterStoresFirstToken(t *testing.T) {
	store := newTestStore(t)
	m := newTestSessions(t, store)
	ctx := context.Background()

	pub, tok, err := m.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	stored, err := store.FindByID(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, stored.Tokens, 1)
	assert.True(t, stored.HasToken(tok, common.PurposeAuth))
}

func TestSessions_ConcurrentRegisterSameEmail(t *testing.T) {
	store := newTestStore(t)
	m := newTestSessions(t, store)
	ctx := context.Background()

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.Register(ctx, "race@example.com", "secret1")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrorDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestSessions_SignIn(t *testing.T) {
	store := newTestStore(t)
	m := newTestSessions(t, store)
	ctx := context.Background()

	reg, t1, err := m.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	pub, t2, err := m.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg, pub)
	assert.NotEqual(t, t1, t2)

	for _, tok := range []string{t1, t2} {
		u, err := m.ResolveFromToken(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, reg.ID, u.ID)
	}

	user, err := m.ResolveFromToken(ctx, t2)
	require.NoError(t, err)
	require.NoError(t, m.SignOut(ctx, user, t2))

	_, err = m.ResolveFromToken(ctx, t2)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = m.ResolveFromToken(ctx, t1)
	assert.NoError(t, err, "other sessions stay active")
}

func TestSessions_SignInTrimsPassword(t *testing.T) {
	m := newTestSessions(t, newTestStore(t))
	ctx := context.Background()

	reg, _, err := m.Register(ctx, "a@example.com", "  secret1  ")
	require.NoError(t, err)

	for _, password := range []string{"secret1", "  secret1  ", "secret1\n"} {
		pub, tok, err := m.SignIn(ctx, "a@example.com", password)
		require.NoError(t, err, "%q", password)
		assert.Equal(t, reg.ID, pub.ID)
		assert.NotEmpty(t, tok)
	}

	_, _, err = m.SignIn(ctx, "a@example.com", "   ")
	assert.ErrorIs(t, err, common.ErrorBadRequest)
}

func TestSessions_SignInRejectsPasswordsPastBcryptLimit(t *testing.T) {
	m := newTestSessions(t, newTestStore(t))
	ctx := context.Background()

	password := strings.Repeat("a", auth.MaxPasswordBytes)
	_, _, err := m.Register(ctx, "a@example.com", password)
	require.NoError(t, err)

	_, _, err = m.SignIn(ctx, "a@example.com", password)
	require.NoError(t, err)

	for _, extra := range []string{"a", "b", "-and-more"} {
		_, tok, err := m.SignIn(ctx, "a@example.com", password+extra)
		assert.ErrorIs(t, err, common.ErrorAuthenticationFailed, extra)
		assert.Empty(t, tok)
	}
}

func TestSessions_SignInFailuresAreIndistinguishable(t *testing.T) {
	store := newTestStore(t)
	m := newTestSessions(t, store)
	ctx := context.Background()

	_, _, err := m.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, _, wrongPassword := m.SignIn(ctx, "a@example.com", "secret2")
	_, _, unknownEmail := m.SignIn(ctx, "nobody@example.com", "secret1")

	assert.Same(t, common.ErrorAuthenticationFailed, wrongPassword)
	assert.Same(t, common.ErrorAuthenticationFailed, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestSessions_SignInBadRequestSkipsLookup(t *testing.T) {
	m := newTestSessions(t, &fakeCredentials{t: t})
	ctx := context.Background()

	for _, in := range []struct{ email, password string }{
		{"", "secret1"},
		{"a@example.com", ""},
		{"not-an-email", "secret1"},
	} {
		_, _, err := m.SignIn(ctx, in.email, in.password)
		assert.ErrorIs(t, err, common.ErrorBadRequest, "%+v", in)
	}
}

func TestSessions_SignInMalformedDigestIsInternal(t *testing.T) {
	m := newTestSessions(t, &fakeCredentials{
		t: t,
		findByEmail: func(context.Context, string) (*models.User, error) {
			return &models.User{ID: "u-1", Email: "a@example.com", PasswordHash: "garbage"}, nil
		},
	})

	_, _, err := m.SignIn(context.Background(), "a@example.com", "secret1")
	require.ErrorIs(t, err, common.ErrMalformedDigest)
	assert.False(t, IsClientError(err))
}

func TestSessions_SignInStoreFailure(t *testing.T) {
	m := newTestSessions(t, &fakeCredentials{
		t: t,
		findByEmail: func(context.Context, string) (*models.User, error) {
			return nil, errors.New("db error: boom")
		},
	})

	_, _, err := m.SignIn(context.Background(), "a@example.com", "secret1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorAuthenticationFailed))
}

func TestSessions_ResolveFromToken(t *testing.T) {
	ctx := context.Background()
	codec := newTestCodec(t)

	t.Run("bad signature", func(t *testing.T) {
		m := newTestSessions(t, &fakeCredentials{t: t})
		_, err := m.ResolveFromToken(ctx, "not.a.token")
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("wrong purpose", func(t *testing.T) {
		m := newTestSessions(t, &fakeCredentials{t: t})
		tok, err := codec.Sign(auth.Claims{Subject: "u-1", Purpose: "reset"})
		require.NoError(t, err)

		_, err = m.ResolveFromToken(ctx, tok)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("orphaned token", func(t *testing.T) {
		m := newTestSessions(t, &fakeCredentials{
			t: t,
			findByID: func(context.Context, string) (*models.User, error) {
				return nil, common.ErrorNotFound
			},
		})
		tok, err := codec.Sign(auth.Claims{Subject: "gone", Purpose: common.PurposeAuth})
		require.NoError(t, err)

		_, err = m.ResolveFromToken(ctx, tok)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("signed but never stored", func(t *testing.T) {
		m := newTestSessions(t, &fakeCredentials{
			t: t,
			findByID: func(_ context.Context, id string) (*models.User, error) {
				return &models.User{ID: id, Tokens: []models.Token{{Access: common.PurposeAuth, Token: "other"}}}, nil
			},
		})
		tok, err := codec.Sign(auth.Claims{Subject: "u-1", Purpose: common.PurposeAuth})
		require.NoError(t, err)

		_, err = m.ResolveFromToken(ctx, tok)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("store failure", func(t *testing.T) {
		m := newTestSessions(t, &fakeCredentials{
			t: t,
			findByID: func(context.Context, string) (*models.User, error) {
				return nil, errors.New("db error: boom")
			},
		})
		tok, err := codec.Sign(auth.Claims{Subject: "u-1", Purpose: common.PurposeAuth})
		require.NoError(t, err)

		_, err = m.ResolveFromToken(ctx, tok)
		require.Error(t, err)
		assert.False(t, IsClientError(err))
	})
}

func TestSessions_UnknownEmailReturnsNoToken(t *testing.T) {
	m := newTestSessions(t, &fakeCredentials{
		t: t,
		findByEmail: func(context.Context, string) (*models.User, error) {
			return nil, common.ErrorNotFound
		},
	})

	_, tok, err := m.SignIn(context.Background(), "a@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrorAuthenticationFailed)
	assert.Empty(t, tok)
}

func TestSessions_RecordsOutcomes(t *testing.T) {
	m := newTestSessions(t, newTestStore(t))
	ctx := context.Background()

	success := metrics.AuthOperations.WithLabelValues("register", metrics.OutcomeSuccess)
	rejected := metrics.AuthOperations.WithLabelValues("register", metrics.OutcomeRejected)
	beforeOK, beforeRejected := testutil.ToFloat64(success), testutil.ToFloat64(rejected)

	_, _, err := m.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	_, _, err = m.Register(ctx, "a@example.com", "secret1")
	require.Error(t, err)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeRejected+1, testutil.ToFloat64(rejected))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(common.NewValidationError("email", "is required")))
	assert.True(t, IsClientError(common.ErrorDuplicateEmail))
	assert.True(t, IsClientError(errors.Join(errors.New("ctx"), common.ErrInvalidToken)))
	assert.False(t, IsClientError(errors.New("db error: boom")))
	assert.False(t, IsClientError(common.ErrMalformedDigest))
}
