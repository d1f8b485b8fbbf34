// Package auth holds the cryptographic primitives of the server: password
// hashing and signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// MaxPasswordBytes is the longest plaintext bcrypt takes into account.
const MaxPasswordBytes = 72

// PasswordHasher turns plaintext passwords into salted digests and checks
// candidates against them.
type PasswordHasher interface {
	// Hash returns a digest embedding a fresh salt and the work factor.
	Hash(ctx context.Context, plaintext string) (string, error)

	// Verify returns (true, nil) on match and (false, nil) on mismatch.
	// A digest that cannot be parsed yields an error wrapping
	// common.ErrMalformedDigest.
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt. At most a fixed number
// of computations run at once; callers beyond that wait for a slot.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher returns a hasher with the given work factor. A concurrency
// of zero or less allows one computation per CPU.
func NewBcryptHasher(cost, concurrency int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &BcryptHasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}, nil
}

// Cost reports the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash waits for a free slot, honouring ctx, then computes the digest.
// A computation that has started is not interrupted.
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	start := time.Now()
	defer metrics.ObservePasswordHash("hash", start)

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify never matches a plaintext longer than MaxPasswordBytes: bcrypt
// would compare only its prefix.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	if len(plaintext) > MaxPasswordBytes {
		return false, nil
	}

	start := time.Now()
	defer metrics.ObservePasswordHash("verify", start)

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", common.ErrMalformedDigest, err)
	}
}
