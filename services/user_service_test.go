package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/user"
)

func TestUpsertByGoogleIDReturnsExistingUser(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	ctx := context.Background()

	created := createTestUser(t, pool, users)

	again, isNew, err := users.UpsertByGoogleID(ctx, &user.UpsertRequest{
		GoogleID: created.GoogleID,
		Email:    created.Email,
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, again.ID)
}

func TestActivatePremiumIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	require.NoError(t, users.ActivatePremium(ctx, u.ID, "cus_first"))

	activated, err := users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsPremium)
	require.NotNil(t, activated.PremiumPurchasedAt)
	firstPurchase := *activated.PremiumPurchasedAt

	// A redelivered webhook must not move the purchase timestamp.
	require.NoError(t, users.ActivatePremium(ctx, u.ID, "cus_replay"))

	replayed, err := users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, replayed.IsPremium)
	require.NotNil(t, replayed.PremiumPurchasedAt)
	assert.Equal(t, firstPurchase, *replayed.PremiumPurchasedAt)
}

func TestActivatePremiumUnknownUser(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)

	err := users.ActivatePremium(context.Background(), "missing-user", "cus_x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateSettingsRejectsUnknownTimezone(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	bad := "Atlantis/Central"
	err := users.UpdateSettings(ctx, u.ID, &user.UpdateSettingsRequest{Timezone: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteUserHidesUser(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	require.NoError(t, users.DeleteUser(ctx, u.ID))

	_, err := users.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
