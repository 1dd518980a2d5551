//go:build integration

package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-contacts-api/internal/database"
	"go-contacts-api/internal/model"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	return db
}

func seedUser(t *testing.T, repo *UserRepository) model.User {
	t.Helper()

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        uuid.NewString() + "@x.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepositoryPostgres(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.Pool)
	ctx := context.Background()

	user := seedUser(t, repo)
	require.ErrorIs(t, repo.Create(ctx, user), model.ErrUserAlreadyExists)

	found, err := repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, found.Role)
	require.False(t, found.Confirmed)
	require.Nil(t, found.RefreshToken)

	token := "t1"
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, &token))

	t.Run("only one concurrent rotation wins", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]bool, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rotated, err := repo.RotateRefreshToken(ctx, user.ID, "t1", uuid.NewString())
				require.NoError(t, err)
				results[i] = rotated
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, rotated := range results {
			if rotated {
				wins++
			}
		}
		require.Equal(t, 1, wins)
	})

	require.NoError(t, repo.ConfirmEmail(ctx, user.Email))
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))

	found, err = repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.True(t, found.Confirmed)
	require.Equal(t, "new-hash", found.PasswordHash)
	require.Nil(t, found.RefreshToken)
}

func TestContactRepositoryPostgres(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.Pool)
	repo := NewContactRepository(db.Pool)
	ctx := context.Background()

	owner := seedUser(t, users)
	birthday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, model.Contact{Name: "John", Surname: "Doe", Email: "john@x.com", Birthday: &birthday, UserID: owner.ID})
	require.NoError(t, err)

	_, err = repo.Create(ctx, model.Contact{Name: "Dup", Surname: "Doe", Email: "john@x.com", UserID: owner.ID})
	require.ErrorIs(t, err, model.ErrConflict)

	found, err := repo.FindByBirthday(ctx, owner.ID, model.NewDateWindow(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), 5))
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = repo.FindByBirthday(ctx, owner.ID, model.NewDateWindow(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), 5))
	require.NoError(t, err)
	require.Empty(t, found)

	byName, err := repo.FindByName(ctx, owner.ID, "JOHN")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	created.Name = "Johnny"
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, "Johnny", updated.Name)

	require.NoError(t, repo.Delete(ctx, owner.ID, created.ID))
	require.ErrorIs(t, repo.Delete(ctx, owner.ID, created.ID), model.ErrContactNotFound)
}
