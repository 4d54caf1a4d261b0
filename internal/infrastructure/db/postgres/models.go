package postgres

import (
	"time"

	"github.com/99minutos/template-backend/internal/core/domain"
)

type userModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	TenantID   uint64    `gorm:"not null;default:0"`
	Username   string    `gorm:"size:64;not null;uniqueIndex"`
	Email      *string   `gorm:"size:255;uniqueIndex"`
	Password   string    `gorm:"not null"`
	FirstName  string    `gorm:"size:128"`
	LastName   string    `gorm:"size:128"`
	Status     string    `gorm:"size:16;not null;index"`
	Source     string    `gorm:"size:16;not null"`
	TotpSecret string    `gorm:"size:64"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`

	Roles []userRoleModel `gorm:"foreignKey:UserID"`
}

func (userModel) TableName() string { return "users" }

type roleModel struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"size:128"`
}

func (roleModel) TableName() string { return "roles" }

type userRoleModel struct {
	UserID uint64    `gorm:"primaryKey"`
	RoleID string    `gorm:"primaryKey;size:64"`
	Role   roleModel `gorm:"foreignKey:RoleID;constraint:OnDelete:RESTRICT"`
}

func (userRoleModel) TableName() string { return "user_roles" }

func fromUserDomain(u *domain.User) *userModel {
	m := &userModel{
		ID:         u.ID,
		TenantID:   u.TenantID,
		Username:   u.Username,
		Password:   u.Password,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Status:     string(u.Status),
		Source:     string(u.Source),
		TotpSecret: u.TotpSecret,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	// NULL keeps several users without email from colliding on the unique index.
	if u.Email != "" {
		email := u.Email
		m.Email = &email
	}
	return m
}

func toUserDomain(m *userModel) *domain.User {
	u := &domain.User{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Username:   m.Username,
		Password:   m.Password,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Status:     domain.UserStatus(m.Status),
		Source:     domain.UserSource(m.Source),
		TotpSecret: m.TotpSecret,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
	if m.Email != nil {
		u.Email = *m.Email
	}
	if len(m.Roles) > 0 {
		u.Roles = make([]domain.Role, 0, len(m.Roles))
		for _, r := range m.Roles {
			u.Roles = append(u.Roles, domain.Role{ID: r.RoleID})
		}
	}
	return u
}
