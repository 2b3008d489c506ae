package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/goal"
)

func TestInviteRedemptionPairsUsers(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)
	redeemer := createTestUser(t, pool, users)

	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Len(t, invite.Code, 6)

	c, err := couples.RedeemInvite(ctx, redeemer.ID, invite.Code)
	require.NoError(t, err)

	fromInviter, err := couples.GetCouple(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, fromInviter.ID)

	fromRedeemer, err := couples.GetCouple(ctx, redeemer.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, fromRedeemer.ID)

	partner, err := couples.GetPartner(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, redeemer.Email, partner.Email)
}

func TestInviteSelfRedemptionRejected(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)

	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)

	_, err = couples.RedeemInvite(ctx, inviter.ID, invite.Code)
	assert.ErrorIs(t, err, apperr.ErrSelfRedemption)
}

func TestInviteCannotBeRedeemedTwice(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)
	first := createTestUser(t, pool, users)
	second := createTestUser(t, pool, users)

	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)

	_, err = couples.RedeemInvite(ctx, first.ID, invite.Code)
	require.NoError(t, err)

	_, err = couples.RedeemInvite(ctx, second.ID, invite.Code)
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)
}

func TestRedeemUnknownCode(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))

	redeemer := createTestUser(t, pool, users)

	_, err := couples.RedeemInvite(context.Background(), redeemer.ID, "ZZZZZZ")
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)
}

func TestGenerateInviteWhilePaired(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)
	redeemer := createTestUser(t, pool, users)

	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)
	_, err = couples.RedeemInvite(ctx, redeemer.ID, invite.Code)
	require.NoError(t, err)

	_, err = couples.GenerateInvite(ctx, inviter.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestGenerateInviteReusesOutstandingCode(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)

	first, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)
	again, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, again.Code)

	pending, err := couples.GetPendingInvite(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, pending.Code)
}

func TestCoupleGoalProgressRecordsActor(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)
	redeemer := createTestUser(t, pool, users)

	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)
	_, err = couples.RedeemInvite(ctx, redeemer.ID, invite.Code)
	require.NoError(t, err)

	g, err := couples.CreateGoal(ctx, inviter.ID, &goal.CreateGoalRequest{
		Title:       "Save for a trip",
		TargetValue: 1000,
	})
	require.NoError(t, err)

	require.NoError(t, couples.UpdateGoalProgress(ctx, redeemer.ID, &goal.UpdateProgressRequest{
		GoalID:   g.ID,
		NewValue: 250,
	}))

	log, err := couples.GetGoalProgressLog(ctx, inviter.ID, g.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, redeemer.ID, log[0].UserID)
	assert.Equal(t, 0, log[0].PreviousValue)
	assert.Equal(t, 250, log[0].NewValue)
}

func TestCoupleOperationsRequirePairing(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	single := createTestUser(t, pool, users)

	_, err := couples.GetGoals(ctx, single.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRedeemInviteIsCaseInsensitive(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)
	redeemer := createTestUser(t, pool, users)

	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)

	c, err := couples.RedeemInvite(ctx, redeemer.ID, "  "+strings.ToLower(invite.Code)+" ")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
}

func TestConcurrentRedemptionsPairExactlyOnce(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserService(pool)
	couples := NewCoupleService(pool, testClock(t))
	ctx := context.Background()

	inviter := createTestUser(t, pool, users)
	invite, err := couples.GenerateInvite(ctx, inviter.ID)
	require.NoError(t, err)

	const contenders = 8
	ids := make([]string, contenders)
	for i := range ids {
		ids[i] = createTestUser(t, pool, users).ID
	}

	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = couples.RedeemInvite(ctx, userID, invite.Code)
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for _, redeemErr := range errs {
		if redeemErr == nil {
			wins++
			continue
		}
		losing := errors.Is(redeemErr, apperr.ErrInvalidCode) || errors.Is(redeemErr, apperr.ErrConflict)
		assert.True(t, losing, "unexpected redemption error: %v", redeemErr)
	}
	assert.Equal(t, 1, wins)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `
	SELECT COUNT(*) FROM couples
	WHERE (user_id_1 = $1 OR user_id_2 = $1) AND deleted_at IS NULL
	`, inviter.ID).Scan(&count))
	assert.Equal(t, 1, count)
}
