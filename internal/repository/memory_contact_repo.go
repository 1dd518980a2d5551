package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-contacts-api/internal/model"
)

type MemoryContactRepository struct {
	mu       sync.RWMutex
	nextID   int64
	contacts map[int64]model.Contact
}

func NewMemoryContactRepository() *MemoryContactRepository {
	return &MemoryContactRepository{nextID: 1, contacts: map[int64]model.Contact{}}
}

func (r *MemoryContactRepository) filter(keep func(c model.Contact) bool) []model.Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Contact, 0)
	for _, c := range r.contacts {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate(contacts []model.Contact, page model.Page) []model.Contact {
	if page.Offset >= len(contacts) {
		return []model.Contact{}
	}
	end := len(contacts)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return contacts[page.Offset:end]
}

func (r *MemoryContactRepository) List(_ context.Context, userID string, page model.Page) ([]model.Contact, error) {
	return paginate(r.filter(func(c model.Contact) bool { return c.UserID == userID }), page), nil
}

func (r *MemoryContactRepository) ListAll(_ context.Context, page model.Page) ([]model.Contact, error) {
	return paginate(r.filter(func(model.Contact) bool { return true }), page), nil
}

func (r *MemoryContactRepository) Get(_ context.Context, userID string, id int64) (model.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.contacts[id]
	if !exists || c.UserID != userID {
		return model.Contact{}, model.ErrContactNotFound
	}
	return c, nil
}

func (r *MemoryContactRepository) FindByName(_ context.Context, userID string, pattern string) ([]model.Contact, error) {
	re := likeMatcher(pattern)
	return r.filter(func(c model.Contact) bool { return c.UserID == userID && re.MatchString(c.Name) }), nil
}

func (r *MemoryContactRepository) FindBySurname(_ context.Context, userID string, pattern string) ([]model.Contact, error) {
	re := likeMatcher(pattern)
	return r.filter(func(c model.Contact) bool { return c.UserID == userID && re.MatchString(c.Surname) }), nil
}

func (r *MemoryContactRepository) FindByEmail(_ context.Context, userID string, email string) (model.Contact, error) {
	found := r.filter(func(c model.Contact) bool { return c.UserID == userID && c.Email == email })
	if len(found) == 0 {
		return model.Contact{}, model.ErrContactNotFound
	}
	return found[0], nil
}

func (r *MemoryContactRepository) FindByBirthday(_ context.Context, userID string, window model.DateWindow) ([]model.Contact, error) {
	found := r.filter(func(c model.Contact) bool { return c.UserID == userID && window.Contains(c.Birthday) })
	sort.SliceStable(found, func(i, j int) bool { return found[i].Birthday.Before(*found[j].Birthday) })
	return found, nil
}

func (r *MemoryContactRepository) Create(_ context.Context, c model.Contact) (model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(c.UserID, c.Email, 0) {
		return model.Contact{}, model.ErrConflict
	}

	now := time.Now().UTC()
	c.ID = r.nextID
	c.CreatedAt = now
	c.UpdatedAt = now
	r.nextID++
	r.contacts[c.ID] = c
	return c, nil
}

func (r *MemoryContactRepository) Update(_ context.Context, c model.Contact) (model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.contacts[c.ID]
	if !exists || existing.UserID != c.UserID {
		return model.Contact{}, model.ErrContactNotFound
	}
	if r.emailTakenLocked(c.UserID, c.Email, c.ID) {
		return model.Contact{}, model.ErrConflict
	}

	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.contacts[c.ID] = c
	return c, nil
}

func (r *MemoryContactRepository) Delete(_ context.Context, userID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.contacts[id]
	if !exists || c.UserID != userID {
		return model.ErrContactNotFound
	}
	delete(r.contacts, id)
	return nil
}

func (r *MemoryContactRepository) emailTakenLocked(userID string, email string, exceptID int64) bool {
	for _, c := range r.contacts {
		if c.ID != exceptID && c.UserID == userID && c.Email == email {
			return true
		}
	}
	return false
}
