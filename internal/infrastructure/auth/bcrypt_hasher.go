// Package auth provides the concrete credential hasher and bearer token issuer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/template-backend/internal/core/domain"
	"github.com/99minutos/template-backend/internal/infrastructure/queue"
	"github.com/99minutos/template-backend/internal/metrics"
)

// BcryptHasher hashes and verifies passwords with bcrypt. All bcrypt work runs
// on a shared worker pool so the number of concurrent hashes stays bounded.
type BcryptHasher struct {
	cost int
	pool *queue.Pool
}

// NewBcryptHasher returns a hasher using cost. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int, pool *queue.Pool) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, pool: pool}
}

// Hash generates a salted digest. Failures, including ctx expiring while the
// job waits for a worker, are reported as domain.ErrHashing.
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.HashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}()

	var digest []byte
	err := h.pool.Do(ctx, func() error {
		var err error
		digest, err = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
	return string(digest), nil
}

// Verify compares plaintext with digest. A mismatch is (false, nil).
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	// bcrypt.Cost parses the digest header without doing any hashing.
	if _, err := bcrypt.Cost([]byte(digest)); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrMalformedDigest, err)
	}

	start := time.Now()
	defer func() {
		metrics.HashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()

	err := h.pool.Do(ctx, func() error {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case isMalformed(err):
		return false, fmt.Errorf("%w: %w", domain.ErrMalformedDigest, err)
	default:
		return false, fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
}

func isMalformed(err error) bool {
	var (
		prefix  bcrypt.InvalidHashPrefixError
		cost    bcrypt.InvalidCostError
		version bcrypt.HashVersionTooNewError
	)
	return errors.Is(err, bcrypt.ErrHashTooShort) ||
		errors.As(err, &prefix) ||
		errors.As(err, &cost) ||
		errors.As(err, &version)
}
