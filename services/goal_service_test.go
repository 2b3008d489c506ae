package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/goal"
)

func TestGoalProgressAppendsLog(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	goals := NewGoalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	g, err := goals.CreateGoal(ctx, u.ID, &goal.CreateGoalRequest{Title: "Read books", TargetValue: 12})
	require.NoError(t, err)
	assert.Equal(t, 0, g.CurrentValue)

	require.NoError(t, goals.UpdateProgress(ctx, u.ID, &goal.UpdateProgressRequest{GoalID: g.ID, NewValue: 3}))
	note := "finished two this week"
	require.NoError(t, goals.UpdateProgress(ctx, u.ID, &goal.UpdateProgressRequest{GoalID: g.ID, NewValue: 5, Note: &note}))

	log, err := goals.GetProgressLog(ctx, u.ID, g.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)

	// newest first
	assert.Equal(t, 3, log[0].PreviousValue)
	assert.Equal(t, 5, log[0].NewValue)
	require.NotNil(t, log[0].Note)
	assert.Equal(t, note, *log[0].Note)
	assert.Equal(t, 0, log[1].PreviousValue)
	assert.Equal(t, 3, log[1].NewValue)
}

func TestDeletedGoalKeepsItsLog(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	goals := NewGoalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	g, err := goals.CreateGoal(ctx, u.ID, &goal.CreateGoalRequest{Title: "Run 100km", TargetValue: 100})
	require.NoError(t, err)
	require.NoError(t, goals.UpdateProgress(ctx, u.ID, &goal.UpdateProgressRequest{GoalID: g.ID, NewValue: 40}))

	require.NoError(t, goals.DeleteGoal(ctx, u.ID, g.ID))

	listed, err := goals.GetGoals(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	log, err := goals.GetProgressLog(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.Len(t, log, 1)

	err = goals.UpdateProgress(ctx, u.ID, &goal.UpdateProgressRequest{GoalID: g.ID, NewValue: 60})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGoalOwnershipEnforced(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	goals := NewGoalService(pool, testClock(t))
	ctx := context.Background()

	owner := createTestUser(t, pool, users)
	stranger := createTestUser(t, pool, users)

	g, err := goals.CreateGoal(ctx, owner.ID, &goal.CreateGoalRequest{Title: "Meditate", TargetValue: 30})
	require.NoError(t, err)

	err = goals.UpdateProgress(ctx, stranger.ID, &goal.UpdateProgressRequest{GoalID: g.ID, NewValue: 1})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	err = goals.DeleteGoal(ctx, stranger.ID, g.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestCreateGoalValidation(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	goals := NewGoalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	_, err := goals.CreateGoal(ctx, u.ID, &goal.CreateGoalRequest{Title: "", TargetValue: 10})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = goals.CreateGoal(ctx, u.ID, &goal.CreateGoalRequest{Title: "No target", TargetValue: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = goals.UpdateProgress(ctx, u.ID, &goal.UpdateProgressRequest{GoalID: "whatever", NewValue: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConcurrentProgressUpdatesKeepLogContiguous(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	goals := NewGoalService(pool, testClock(t))
	ctx := context.Background()

	u := createTestUser(t, pool, users)

	g, err := goals.CreateGoal(ctx, u.ID, &goal.CreateGoalRequest{Title: "Save money", TargetValue: 1000})
	require.NoError(t, err)

	const updates = 8
	errs := make([]error, updates)
	var wg sync.WaitGroup
	for i := 0; i < updates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = goals.UpdateProgress(ctx, u.ID, &goal.UpdateProgressRequest{
				GoalID:   g.ID,
				NewValue: (i + 1) * 10,
			})
		}(i)
	}
	wg.Wait()
	for _, updateErr := range errs {
		require.NoError(t, updateErr)
	}

	log, err := goals.GetProgressLog(ctx, u.ID, g.ID)
	require.NoError(t, err)
	require.Len(t, log, updates)

	// The row lock serializes the updates, so walking the log oldest
	// first every entry must start from the value the one before wrote.
	for i, j := 0, len(log)-1; i < j; i, j = i+1, j-1 {
		log[i], log[j] = log[j], log[i]
	}
	assert.Equal(t, 0, log[0].PreviousValue)
	for i := 1; i < len(log); i++ {
		assert.Equal(t, log[i-1].NewValue, log[i].PreviousValue)
	}

	listed, err := goals.GetGoals(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, log[len(log)-1].NewValue, listed[0].CurrentValue)
}
