package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

func TestStorage_Users(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.RoleDeveloper, created.Role)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("duplicate username", func(t *testing.T) {
		_, err := s.CreateUser(ctx, models.User{Username: "alice", Email: "other@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := s.CreateUser(ctx, models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("login by username or email", func(t *testing.T) {
		byName, err := s.GetUserByLogin(ctx, "alice")
		require.NoError(t, err)
		byEmail, err := s.GetUserByLogin(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byName.ID)
		assert.Equal(t, created.ID, byEmail.ID)
		assert.Equal(t, "hash", byName.PasswordHash)
	})

	t.Run("unknown login", func(t *testing.T) {
		_, err := s.GetUserByLogin(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("get by malformed id", func(t *testing.T) {
		_, err := s.GetUserByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("update role", func(t *testing.T) {
		u, err := s.UpdateUserRole(ctx, created.ID, models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, u.Role)

		got, err := s.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("list users", func(t *testing.T) {
		_, err := s.CreateUser(ctx, models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"})
		require.NoError(t, err)

		users, total, err := s.ListUsers(ctx, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, users, 1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.GetUserByID(cctx, created.ID)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStorage_CheckDatabaseReady(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, s.CheckDatabaseReady(ctx))
	require.NoError(t, s.Ping(ctx))

	_, err := s.DB.ExecContext(ctx, `DROP TABLE audit_logs`)
	require.NoError(t, err)

	err = s.CheckDatabaseReady(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit_logs")
}
