// Package tokens declares the server-side repository contract for the
// active session tokens of a user.
package tokens

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Repository stores the ordered token list of each user.
type Repository interface {
	// Append adds token to userID's list. Appending a token that is already
	// present is a no-op.
	Append(ctx context.Context, userID string, token models.Token) error

	// Remove deletes token from userID's list. Removing an absent token
	// is not an error.
	Remove(ctx context.Context, userID string, token string) error

	// ListByUser returns userID's tokens in the order they were appended.
	ListByUser(ctx context.Context, userID string) ([]models.Token, error)
}
