package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, secret string) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec([]byte(secret))
	require.NoError(t, err)
	return c
}

func TestNewTokenCodec_EmptySecret(t *testing.T) {
	_, err := NewTokenCodec(nil)
	assert.ErrorIs(t, err, common.ErrEmptySecret)

	_, err = NewTokenCodec([]byte{})
	assert.ErrorIs(t, err, common.ErrEmptySecret)
}

func TestNewTokenCodec_CopiesSecret(t *testing.T) {
	secret := []byte("super-secret")
	c, err := NewTokenCodec(secret)
	require.NoError(t, err)

	tok, err := c.Sign(Claims{Subject: "u-1", Purpose: common.PurposeAuth})
	require.NoError(t, err)

	secret[0] = 'X'
	_, err = c.Verify(tok)
	assert.NoError(t, err)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t, "super-secret")

	in := Claims{Subject: "6f1c2a7e-0d9b-4c55-9a57-2b8ad0a5e0c3", Purpose: common.PurposeAuth}
	tok, err := c.Sign(in)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(tok, "."))
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "/")
	assert.NotContains(t, tok, "=")

	out, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSign_TokensAreDistinct(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t, "super-secret")
	frozen := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return frozen }

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		tok, err := c.Sign(Claims{Subject: "u-1", Purpose: common.PurposeAuth})
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "token issued twice")
		seen[tok] = struct{}{}
	}
}

func TestSign_RequiresClaims(t *testing.T) {
	c := newTestCodec(t, "super-secret")

	_, err := c.Sign(Claims{Purpose: common.PurposeAuth})
	assert.Error(t, err)

	_, err = c.Sign(Claims{Subject: "u-1"})
	assert.Error(t, err)
}

func TestVerify_AnySingleCharacterTamperFails(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t, "super-secret")

	tok, err := c.Sign(Claims{Subject: "u-1", Purpose: common.PurposeAuth})
	require.NoError(t, err)

	for i := range tok {
		if tok[i] == '.' {
			continue
		}
		repl := byte('A')
		if tok[i] == 'A' {
			repl = 'B'
		}
		tampered := tok[:i] + string(repl) + tok[i+1:]

		_, err := c.Verify(tampered)
		require.ErrorIs(t, err, common.ErrInvalidToken, "position %d", i)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	tok, err := newTestCodec(t, "right-secret").Sign(Claims{Subject: "u-1", Purpose: common.PurposeAuth})
	require.NoError(t, err)

	_, err = newTestCodec(t, "wrong-secret").Verify(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()
	secret := []byte("super-secret")
	c := newTestCodec(t, string(secret))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		Purpose:          common.PurposeAuth,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString(secret)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		Purpose:          common.PurposeAuth,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Purpose: common.PurposeAuth,
	}).SignedString(secret)
	require.NoError(t, err)

	noPurpose, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString(secret)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":      "",
		"garbage":    "not-a-token",
		"two parts":  "abc.def",
		"hs512":      hs512,
		"alg none":   none,
		"no subject": noSubject,
		"no purpose": noPurpose,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Verify(tok)
			assert.True(t, errors.Is(err, common.ErrInvalidToken), "got %v", err)
		})
	}
}
