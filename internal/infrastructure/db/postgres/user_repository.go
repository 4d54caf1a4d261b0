package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// UserRepository stores users, roles and role links through gorm.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and its role links in one transaction. A role id
// missing from the roles table aborts the whole insert with domain.ErrInvalidUser.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := fromUserDomain(user)
	m.ID = 0
	roleIDs := uniqueRoleIDs(user.Roles)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Roles").Create(m).Error; err != nil {
			return translateError(err, "insert user")
		}
		if len(roleIDs) == 0 {
			return nil
		}

		var known int64
		if err := tx.Model(&roleModel{}).Where("id IN ?", roleIDs).Count(&known).Error; err != nil {
			return errors.Wrap(err, "count roles")
		}
		if int(known) != len(roleIDs) {
			return errors.Wrap(domain.ErrInvalidUser, "unknown role")
		}

		links := make([]userRoleModel, 0, len(roleIDs))
		for _, id := range roleIDs {
			links = append(links, userRoleModel{UserID: m.ID, RoleID: id})
			m.Roles = append(m.Roles, userRoleModel{UserID: m.ID, RoleID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return translateError(err, "insert user roles")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toUserDomain(m), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Preload("Roles").First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "find user by id")
	}
	return toUserDomain(&m), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&m).Error; err != nil {
		return nil, translateError(err, "find user by username")
	}
	return toUserDomain(&m), nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id uint64) error {
	return r.update(ctx, id, map[string]any{"status": string(domain.StatusDeleted)}, "soft delete user")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, digest string) error {
	return r.update(ctx, id, map[string]any{"password": digest}, "update password")
}

func (r *UserRepository) update(ctx context.Context, id uint64, fields map[string]any, op string) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translateError(res.Error, op)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func uniqueRoleIDs(roles []domain.Role) []string {
	seen := make(map[string]struct{}, len(roles))
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		ids = append(ids, r.ID)
	}
	return ids
}
