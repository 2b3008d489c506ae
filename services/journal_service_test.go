package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/journal"
)

func TestGetOrCreateTodayEntryIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	journals := NewJournalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	first, err := journals.GetOrCreateTodayEntry(ctx, u.ID)
	require.NoError(t, err)
	second, err := journals.GetOrCreateTodayEntry(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, testClock(t).Today(), first.Date)
}

func TestUpdateTodayEntryPartialSave(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	journals := NewJournalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	gratitude := "morning coffee"
	require.NoError(t, journals.UpdateTodayEntry(ctx, u.ID, &journal.UpdateEntryRequest{
		Gratitude: &gratitude,
	}))

	intention := "ship the release"
	require.NoError(t, journals.UpdateTodayEntry(ctx, u.ID, &journal.UpdateEntryRequest{
		Intention: &intention,
	}))

	entry, err := journals.GetOrCreateTodayEntry(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.Gratitude)
	assert.Equal(t, gratitude, *entry.Gratitude)
	require.NotNil(t, entry.Intention)
	assert.Equal(t, intention, *entry.Intention)
	assert.NotNil(t, entry.UpdatedAt)

	err = journals.UpdateTodayEntry(ctx, u.ID, &journal.UpdateEntryRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestTaskLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	journals := NewJournalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	first, err := journals.AddTask(ctx, u.ID, "work", "review the deploy")
	require.NoError(t, err)
	second, err := journals.AddTask(ctx, u.ID, "personal", "call the dentist")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)

	require.NoError(t, journals.ToggleTask(ctx, u.ID, first.ID, true))
	require.NoError(t, journals.DeleteTask(ctx, u.ID, second.ID))

	entry, err := journals.GetOrCreateTodayEntry(ctx, u.ID)
	require.NoError(t, err)
	tasks, err := journals.GetTasksForEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.True(t, tasks[0].Completed)
}

func TestTaskValidationAndOwnership(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	journals := NewJournalService(pool, testClock(t))
	ctx := context.Background()

	owner := createTestUser(t, pool, users)
	stranger := createTestUser(t, pool, users)

	_, err := journals.AddTask(ctx, owner.ID, "errand", "invalid category")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = journals.AddTask(ctx, owner.ID, "work", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	task, err := journals.AddTask(ctx, owner.ID, "work", "owned task")
	require.NoError(t, err)

	err = journals.ToggleTask(ctx, stranger.ID, task.ID, true)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	err = journals.DeleteTask(ctx, stranger.ID, task.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
