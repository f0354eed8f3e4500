package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

func TestStorage_Subscriptions(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	factory := newTestDataFactory(s)

	t.Run("no active subscription", func(t *testing.T) {
		userID := factory.createUser(t, "empty", models.RoleDeveloper)
		sub, err := s.GetActiveSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("create then duplicate", func(t *testing.T) {
		userID := factory.createUser(t, "creator", models.RoleDeveloper)

		created, err := s.CreateActiveSubscription(ctx, models.Subscription{UserID: userID, Plan: "pro"})
		require.NoError(t, err)
		assert.True(t, created.Active)
		assert.Nil(t, created.EndDate)

		_, err = s.CreateActiveSubscription(ctx, models.Subscription{UserID: userID, Plan: "starter"})
		assert.ErrorIs(t, err, storage.ErrAlreadySubscribed)

		active, err := s.GetActiveSubscription(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, created.ID, active.ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.CreateActiveSubscription(ctx, models.Subscription{
			UserID: "00000000-0000-0000-0000-000000000000", Plan: "pro",
		})
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("partial unique index", func(t *testing.T) {
		userID := factory.createUser(t, "indexed", models.RoleDeveloper)
		factory.createSubscription(t, userID, "pro", true)

		_, err := s.DB.Exec(`INSERT INTO subscriptions (id, user_id, plan, active)
			VALUES (gen_random_uuid(), $1, 'pro', TRUE)`, userID)
		assert.True(t, isUniqueViolation(err))
	})

	t.Run("replace cancels previous", func(t *testing.T) {
		userID := factory.createUser(t, "replacer", models.RoleDeveloper)
		oldID := factory.createSubscription(t, userID, "starter", true)

		created, cancelled, err := s.ReplaceActiveSubscription(ctx, models.Subscription{
			UserID: userID, Plan: "pro", PaymentRef: "pi_1",
		})
		require.NoError(t, err)
		require.NotNil(t, cancelled)
		assert.Equal(t, oldID, cancelled.ID)
		assert.False(t, cancelled.Active)
		assert.NotNil(t, cancelled.EndDate)
		assert.Equal(t, "pi_1", created.PaymentRef)
		assert.Equal(t, 1, factory.countActive(t, userID))
	})

	t.Run("cancel is repeatable", func(t *testing.T) {
		userID := factory.createUser(t, "canceller", models.RoleDeveloper)
		id := factory.createSubscription(t, userID, "pro", true)

		first, err := s.CancelSubscription(ctx, id)
		require.NoError(t, err)
		assert.False(t, first.Active)
		require.NotNil(t, first.EndDate)

		second, err := s.CancelSubscription(ctx, id)
		require.NoError(t, err)
		assert.False(t, second.Active)
		assert.True(t, first.EndDate.Equal(*second.EndDate))
	})

	t.Run("cancel unknown", func(t *testing.T) {
		_, err := s.CancelSubscription(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, storage.ErrSubscriptionNotFound)
	})

	t.Run("concurrent replace keeps one active", func(t *testing.T) {
		userID := factory.createUser(t, "racer", models.RoleDeveloper)

		var wg sync.WaitGroup
		for n := 0; n < 8; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := s.ReplaceActiveSubscription(ctx, models.Subscription{UserID: userID, Plan: "pro"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, factory.countActive(t, userID))
		subs, err := s.ListSubscriptions(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, subs, 8)
	})
}
