package ports

import (
	"context"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// IdentityService is the only path through which users are created and authenticated.
type IdentityService interface {
	CreateUser(ctx context.Context, candidate *domain.User) (*domain.User, error)
	Authenticate(ctx context.Context, creds domain.Credentials) (*domain.AuthenticationResult, error)
}

// AttemptLimiter tracks failed logins per username.
type AttemptLimiter interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
