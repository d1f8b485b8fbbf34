package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/go-playground/validator/v10"
)

// Credentials is the part of CredentialStore used by SessionManager.
type Credentials interface {
	CreateWithToken(ctx context.Context, email, password, purpose string, mint func(*models.User) (string, error)) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	AppendToken(ctx context.Context, userID, token, purpose string) error
	RemoveToken(ctx context.Context, userID, token string) error
}

// TokenSigner mints and checks session tokens.
type TokenSigner interface {
	Sign(claims auth.Claims) (string, error)
	Verify(token string) (auth.Claims, error)
}

// SessionManager implements registration, sign-in, token resolution and
// sign-out. It keeps no state between calls.
type SessionManager struct {
	creds    Credentials
	hasher   auth.PasswordHasher
	tokens   TokenSigner
	validate *validator.Validate
	log      logging.Logger

	// dummyDigest is verified against when the email is unknown, so that
	// both sign-in failures cost one bcrypt comparison.
	dummyDigest string
}

// NewSessionManager builds a SessionManager. It hashes a throwaway password
// once, which takes as long as a regular registration.
func NewSessionManager(ctx context.Context, creds Credentials, hasher auth.PasswordHasher, tokens TokenSigner, log logging.Logger) (*SessionManager, error) {
	dummy, err := hasher.Hash(ctx, "shopkeeper-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	return &SessionManager{
		creds:       creds,
		hasher:      hasher,
		tokens:      tokens,
		validate:    newValidator(),
		log:         log.With("module", "sessions"),
		dummyDigest: dummy,
	}, nil
}

// Register creates the account and signs it in. The account and its first
// token are stored together or not at all. Validation and duplicate email
// errors are returned unchanged.
func (m *SessionManager) Register(ctx context.Context, email, password string) (*models.PublicUser, string, error) {
	var token string
	user, err := m.creds.CreateWithToken(ctx, email, password, common.PurposeAuth, func(u *models.User) (string, error) {
		t, err := m.sign(u)
		token = t
		return t, err
	})
	if err != nil {
		m.finish(ctx, "register", err)
		return nil, "", err
	}

	m.log.Info(ctx, "user registered", "user_id", user.ID)
	m.finish(ctx, "register", nil)
	return user.Public(), token, nil
}

// SignIn checks the credentials and issues a new token. An unknown email and
// a wrong password both yield common.ErrorAuthenticationFailed.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*models.PublicUser, string, error) {
	user, err := m.authenticate(ctx, email, password)
	if err != nil {
		m.finish(ctx, "signin", err)
		return nil, "", err
	}

	token, err := m.issue(ctx, user)
	if err != nil {
		m.finish(ctx, "signin", err)
		return nil, "", err
	}

	m.log.Debug(ctx, "signed in", "user_id", user.ID)
	m.finish(ctx, "signin", nil)
	return user.Public(), token, nil
}

// ResolveFromToken returns the user a token was issued to. The token must
// still be active: a revoked token fails with common.ErrorUnauthorized even
// though its signature is valid.
func (m *SessionManager) ResolveFromToken(ctx context.Context, token string) (*models.User, error) {
	user, err := m.resolve(ctx, token)
	if err != nil {
		m.finish(ctx, "resolve", err)
		return nil, err
	}
	m.finish(ctx, "resolve", nil)
	return user, nil
}

// SignOut revokes token. Revoking an already revoked token succeeds.
func (m *SessionManager) SignOut(ctx context.Context, user *models.User, token string) error {
	err := m.creds.RemoveToken(ctx, user.ID, token)
	m.finish(ctx, "signout", err)
	return err
}

func (m *SessionManager) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	// stored digests are of the trimmed password
	password = strings.TrimSpace(password)
	if password == "" || m.validate.Var(email, "required,email") != nil {
		return nil, common.ErrorBadRequest
	}

	user, err := m.creds.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		_, _ = m.hasher.Verify(ctx, password, m.dummyDigest)
		return nil, common.ErrorAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}

	ok, err := m.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		if errors.Is(err, common.ErrMalformedDigest) {
			m.log.Warn(ctx, "stored password digest is unreadable", "user_id", user.ID)
		}
		return nil, err
	}
	if !ok {
		return nil, common.ErrorAuthenticationFailed
	}

	return user, nil
}

func (m *SessionManager) resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != common.PurposeAuth {
		return nil, common.ErrorUnauthorized
	}

	user, err := m.creds.FindByID(ctx, claims.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if !user.HasToken(token, common.PurposeAuth) {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

func (m *SessionManager) sign(user *models.User) (string, error) {
	return m.tokens.Sign(auth.Claims{Subject: user.ID, Purpose: common.PurposeAuth})
}

func (m *SessionManager) issue(ctx context.Context, user *models.User) (string, error) {
	token, err := m.sign(user)
	if err != nil {
		return "", err
	}
	if err := m.creds.AppendToken(ctx, user.ID, token, common.PurposeAuth); err != nil {
		return "", err
	}
	user.Tokens = append(user.Tokens, models.Token{Access: common.PurposeAuth, Token: token})
	return token, nil
}

// finish records the outcome of operation and logs rejections at debug level.
func (m *SessionManager) finish(ctx context.Context, operation string, err error) {
	switch {
	case err == nil:
		metrics.RecordAuthOperation(operation, metrics.OutcomeSuccess)
	case IsClientError(err):
		m.log.Debug(ctx, "request rejected", "operation", operation, "reason", err.Error())
		metrics.RecordAuthOperation(operation, metrics.OutcomeRejected)
	default:
		metrics.RecordAuthOperation(operation, metrics.OutcomeError)
	}
}

// IsClientError reports whether err is caused by the caller's input or
// credentials rather than by a server fault.
func IsClientError(err error) bool {
	for _, target := range []error{
		common.ErrorValidation,
		common.ErrorDuplicateEmail,
		common.ErrorBadRequest,
		common.ErrorAuthenticationFailed,
		common.ErrInvalidToken,
		common.ErrorUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
