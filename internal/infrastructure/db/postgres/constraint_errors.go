package postgres

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// translateError maps gorm's translated errors onto domain sentinels.
// The connection is opened with TranslateError so driver codes arrive as gorm errors.
func translateError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(domain.ErrUserExists, op)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.Wrap(domain.ErrInvalidUser, op)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return errors.Wrap(domain.ErrInvalidUser, op)
	default:
		return errors.Wrap(err, op)
	}
}
