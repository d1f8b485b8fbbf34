// Package users declares the repository contract for user accounts and its
// database/sql implementation shared by the PostgreSQL and SQLite dialects.
package users

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Repository persists user accounts. Token lists are not loaded here.
type Repository interface {
	// Create inserts user. A taken email yields common.ErrorDuplicateEmail.
	Create(ctx context.Context, user *models.User) error
	// GetByEmail returns common.ErrorNotFound when no user has email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByID returns common.ErrorNotFound when id is unknown.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdatePasswordHash replaces the stored digest of user id.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
