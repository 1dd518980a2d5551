package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-contacts-api/internal/model"
)

// MemoryUserRepository keeps users in process memory. It backs the service
// when no DATABASE_URL is configured and serves as a test fixture.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byEmail: map[string]model.User{}}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u model.User) model.User {
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		u.RefreshToken = &token
	}
	return u
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.byEmail[emailKey(email)]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(u.Email)
	if _, exists := r.byEmail[key]; exists {
		return model.ErrUserAlreadyExists
	}
	r.byEmail[key] = cloneUser(u)
	return nil
}

func (r *MemoryUserRepository) UpdateRefreshToken(_ context.Context, userID string, token *string) error {
	return r.mutate(userID, func(u *model.User) {
		if token == nil {
			u.RefreshToken = nil
			return
		}
		stored := *token
		u.RefreshToken = &stored
	})
}

func (r *MemoryUserRepository) RotateRefreshToken(_ context.Context, userID string, presented string, next string) (bool, error) {
	rotated := false
	err := r.mutate(userID, func(u *model.User) {
		if !u.HasRefreshToken(presented) {
			return
		}
		u.RefreshToken = &next
		rotated = true
	})
	return rotated, err
}

func (r *MemoryUserRepository) ConfirmEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(email)
	u, exists := r.byEmail[key]
	if !exists {
		return model.ErrUserNotFound
	}
	u.Confirmed = true
	u.UpdatedAt = time.Now().UTC()
	r.byEmail[key] = u
	return nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	return r.mutate(userID, func(u *model.User) {
		u.PasswordHash = passwordHash
		u.RefreshToken = nil
	})
}

func (r *MemoryUserRepository) mutate(userID string, fn func(u *model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, u := range r.byEmail {
		if u.ID != userID {
			continue
		}
		fn(&u)
		u.UpdatedAt = time.Now().UTC()
		r.byEmail[key] = u
		return nil
	}
	return model.ErrUserNotFound
}
