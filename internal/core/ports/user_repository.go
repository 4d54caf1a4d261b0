package ports

import (
	"context"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// UserRepository is the persistence boundary for users. Implementations own
// their concurrency discipline; Create must be atomic.
type UserRepository interface {
	// Create persists user and returns the stored record with its assigned ID.
	// A username or email conflict is reported as domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id uint64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// SoftDelete flips the status to DELETED and keeps the record.
	SoftDelete(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, digest string) error
	Ping(ctx context.Context) error
}
