package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Claims is what a session token asserts: who it belongs to and what it may
// be used for.
type Claims struct {
	Subject string
	Purpose string
}

// tokenClaims is the JWT payload. The random ID keeps two tokens issued to
// the same user within one second distinct.
type tokenClaims struct {
	Purpose string `json:"access"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 session tokens with a fixed secret.
// It is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenCodec returns a codec keyed by secret. An empty secret is a
// configuration fault.
func NewTokenCodec(secret []byte) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, common.ErrEmptySecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	return &TokenCodec{
		secret: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
		),
		now: time.Now,
	}, nil
}

// Sign returns a compact, URL-safe token carrying claims.
func (c *TokenCodec) Sign(claims Claims) (string, error) {
	if claims.Subject == "" || claims.Purpose == "" {
		return "", errors.New("sign token: subject and purpose are required")
	}

	jti, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Purpose: claims.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  claims.Subject,
			IssuedAt: jwt.NewNumericDate(c.now()),
			ID:       jti,
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and structure of token and returns its
// claims. Every failure wraps common.ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (Claims, error) {
	tc := &tokenClaims{}

	parsed, err := c.parser.ParseWithClaims(token, tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || tc.Subject == "" || tc.Purpose == "" {
		return Claims{}, common.ErrInvalidToken
	}

	return Claims{Subject: tc.Subject, Purpose: tc.Purpose}, nil
}
