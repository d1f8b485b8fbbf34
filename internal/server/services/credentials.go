// Package services contains server-side business logic: the credential
// store over the repositories and the session manager built on top of it.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CredentialStore persists users and their session tokens. Password digests
// are only ever written by Create and UpdatePassword.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	validate    *validator.Validate
	now         func() time.Time
}

// NewCredentialStore wires a store over db using the repositories of m.
func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher) *CredentialStore {
	return &CredentialStore{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		validate:    newValidator(),
		now:         time.Now,
	}
}

// Create validates the input, hashes the password and inserts the user in a
// single transaction. A taken email yields common.ErrorDuplicateEmail and
// leaves the store unchanged. Surrounding whitespace is trimmed from the
// password before it is checked and hashed.
func (s *CredentialStore) Create(ctx context.Context, email, password string) (*models.User, error) {
	return s.create(ctx, email, password, nil)
}

// CreateWithToken creates the user as Create does and stores the token mint
// returns for it in the same transaction. If mint or the insert fails no
// user is left behind.
func (s *CredentialStore) CreateWithToken(ctx context.Context, email, password, purpose string, mint func(*models.User) (string, error)) (*models.User, error) {
	return s.create(ctx, email, password, func(ctx context.Context, tx dbx.DBTX, user *models.User) error {
		token, err := mint(user)
		if err != nil {
			return err
		}

		t := models.Token{Access: purpose, Token: token}
		if err := s.repomanager.Tokens(tx).Append(ctx, user.ID, t); err != nil {
			return err
		}
		user.Tokens = append(user.Tokens, t)
		return nil
	})
}

func (s *CredentialStore) create(ctx context.Context, email, password string, then func(ctx context.Context, tx dbx.DBTX, user *models.User) error) (*models.User, error) {
	password = strings.TrimSpace(password)
	if err := validateStruct(s.validate, credentials{Email: email, Password: password}); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: digest,
		Tokens:       []models.Token{},
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		if then == nil {
			return nil
		}
		return then(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindByEmail returns the user registered with exactly email, tokens
// included, or common.ErrorNotFound.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.withTokens(ctx, user)
}

// FindByID returns the user with id, tokens included, or common.ErrorNotFound.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTokens(ctx, user)
}

// AppendToken adds token to the user's active tokens. Appending the same
// token twice keeps a single entry.
func (s *CredentialStore) AppendToken(ctx context.Context, userID, token, purpose string) error {
	return s.repomanager.Tokens(s.db).Append(ctx, userID, models.Token{Access: purpose, Token: token})
}

// RemoveToken revokes token. Removing a token that is not active is a no-op.
func (s *CredentialStore) RemoveToken(ctx context.Context, userID, token string) error {
	return s.repomanager.Tokens(s.db).Remove(ctx, userID, token)
}

// UpdatePassword replaces the user's password, trimmed as in Create. The
// digest is recomputed only when newPassword differs from the current one.
// Active tokens are kept.
func (s *CredentialStore) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	in := struct {
		Password string `json:"password" validate:"required,min=6,bcryptlen"`
	}{Password: newPassword}
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	// An unreadable digest is replaced rather than reported.
	same, err := s.hasher.Verify(ctx, newPassword, user.PasswordHash)
	if err != nil && !errors.Is(err, common.ErrMalformedDigest) {
		return err
	}
	if same {
		return nil
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	return repo.UpdatePasswordHash(ctx, userID, digest)
}

func (s *CredentialStore) withTokens(ctx context.Context, user *models.User) (*models.User, error) {
	tokens, err := s.repomanager.Tokens(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load tokens of %s: %w", user.ID, err)
	}
	user.Tokens = tokens
	return user, nil
}
