// Package memory is an in-process user store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// UserRepository keeps users in a map guarded by a mutex. IDs increase
// monotonically and are never reused.
type UserRepository struct {
	mu         sync.RWMutex
	users      map[uint64]*domain.User
	byUsername map[string]uint64
	byEmail    map[string]uint64
	lastID     uint64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:      make(map[uint64]*domain.User),
		byUsername: make(map[string]uint64),
		byEmail:    make(map[string]uint64),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[user.Username]; taken {
		return nil, domain.ErrUserExists
	}
	if user.Email != "" {
		if _, taken := r.byEmail[user.Email]; taken {
			return nil, domain.ErrUserExists
		}
	}

	r.lastID++
	stored := user.Clone()
	stored.ID = r.lastID

	r.users[stored.ID] = stored
	r.byUsername[stored.Username] = stored.ID
	if stored.Email != "" {
		r.byEmail[stored.Email] = stored.ID
	}
	return stored.Clone(), nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.users[id].Clone(), nil
}

func (r *UserRepository) SoftDelete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Status = domain.StatusDeleted
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uint64, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Password = digest
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) Ping(context.Context) error { return nil }
