package ports

import "github.com/99minutos/template-backend/internal/core/domain"

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}
