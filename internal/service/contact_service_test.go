package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contacts-api/internal/model"
	"go-contacts-api/internal/repository"
)

func newContactService() *ContactService {
	svc := NewContactService(repository.NewMemoryContactRepository())
	svc.now = func() time.Time { return time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC) }
	return svc
}

func TestNewPage(t *testing.T) {
	t.Parallel()

	page, err := NewPage(10, 0)
	require.NoError(t, err)
	assert.Equal(t, model.Page{Limit: 10, Offset: 0}, page)

	_, err = NewPage(9, 0)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = NewPage(501, 0)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = NewPage(500, -1)
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestContactService_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newContactService()
	alice := model.User{ID: "alice", Role: model.RoleUser}
	bob := model.User{ID: "bob", Role: model.RoleUser}

	created, err := svc.Create(ctx, alice, model.ContactRequest{
		Name: "Ann", Surname: "Lee", Email: "ann@x.com", Phone: "+1 (555) 010-2000", Birthday: "1990-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.UserID)
	require.NotNil(t, created.Birthday)
	assert.Equal(t, "1990-03-10", created.Birthday.Format(model.DateLayout))

	_, err = svc.Create(ctx, alice, model.ContactRequest{Name: "Ann", Surname: "Other", Email: "ann@x.com", Phone: "123"})
	requireStatus(t, err, http.StatusConflict)

	_, err = svc.Create(ctx, bob, model.ContactRequest{Name: "Ann", Surname: "Lee", Email: "ann@x.com", Phone: "123"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, created.ID)
	requireStatus(t, err, http.StatusNotFound)

	updated, err := svc.Update(ctx, alice, created.ID, model.ContactRequest{Name: "Anna", Surname: "Lee", Email: "anna@x.com", Phone: "123"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", updated.Name)
	assert.Nil(t, updated.Birthday)

	_, err = svc.Update(ctx, bob, created.ID, model.ContactRequest{Name: "X", Surname: "Y", Email: "x@x.com", Phone: "1"})
	requireStatus(t, err, http.StatusNotFound)

	require.Error(t, svc.Delete(ctx, bob, created.ID))
	require.NoError(t, svc.Delete(ctx, alice, created.ID))
	requireStatus(t, svc.Delete(ctx, alice, created.ID), http.StatusNotFound)
}

func TestContactService_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newContactService()
	user := model.User{ID: "u1"}

	cases := map[string]model.ContactRequest{
		"missing name":    {Surname: "Lee", Email: "a@x.com", Phone: "1"},
		"missing surname": {Name: "Ann", Email: "a@x.com", Phone: "1"},
		"bad email":       {Name: "Ann", Surname: "Lee", Email: "nope", Phone: "1"},
		"bad phone":       {Name: "Ann", Surname: "Lee", Email: "a@x.com", Phone: "call me"},
		"bad birthday":    {Name: "Ann", Surname: "Lee", Email: "a@x.com", Phone: "1", Birthday: "10/03/1990"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, user, req)
			require.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}

	_, err := svc.Get(ctx, user, 0)
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestContactService_Search(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newContactService()
	user := model.User{ID: "u1"}

	_, err := svc.Create(ctx, user, model.ContactRequest{Name: "Ann", Surname: "Lee", Email: "ann@x.com", Phone: "1", Birthday: "2024-03-10"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, user, model.ContactRequest{Name: "Bob", Surname: "Leeds", Email: "bob@x.com", Phone: "2"})
	require.NoError(t, err)

	t.Run("birthday window is inclusive", func(t *testing.T) {
		found, err := svc.SearchByBirthday(ctx, user, "2024-03-08", 5)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Ann", found[0].Name)

		found, err = svc.SearchByBirthday(ctx, user, "2024-03-11", 5)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("birthday defaults to today", func(t *testing.T) {
		found, err := svc.SearchByBirthday(ctx, user, "", DefaultBirthdayWindow)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("birthday rejects bad input", func(t *testing.T) {
		_, err := svc.SearchByBirthday(ctx, user, "March 8", 7)
		require.ErrorIs(t, err, model.ErrInvalidInput)
		_, err = svc.SearchByBirthday(ctx, user, "2024-03-08", -1)
		require.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("name and surname are case insensitive", func(t *testing.T) {
		found, err := svc.SearchByName(ctx, user, "ann")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = svc.SearchBySurname(ctx, user, "lee%")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		_, err = svc.SearchByName(ctx, user, " ")
		require.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("email lookup", func(t *testing.T) {
		found, err := svc.SearchByEmail(ctx, user, "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Bob", found.Name)

		_, err = svc.SearchByEmail(ctx, model.User{ID: "other"}, "bob@x.com")
		requireStatus(t, err, http.StatusNotFound)
	})
}

func TestRoleAccess(t *testing.T) {
	t.Parallel()

	guard := NewRoleAccess(model.RoleAdmin, model.RoleModerator)

	require.NoError(t, guard.Check(model.User{Role: model.RoleAdmin}))
	require.NoError(t, guard.Check(model.User{Role: model.RoleModerator}))

	err := guard.Check(model.User{Role: model.RoleUser})
	requireStatus(t, err, http.StatusForbidden)
	require.ErrorIs(t, err, model.ErrForbidden)
}
