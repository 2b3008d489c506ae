package services

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"oritualAPI/internal/dates"
	"oritualAPI/internal/user"
)

// setupTestDB connects to the test database, or skips the test when no
// database is configured. Expects the schema from schema.sql to be
// applied already.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	t.Cleanup(pool.Close)
	return pool
}

func testClock(t *testing.T) *dates.Clock {
	t.Helper()
	clock, err := dates.NewClock("America/Sao_Paulo")
	require.NoError(t, err)
	return clock
}

// createTestUser provisions a fresh user through the normal upsert path
// and registers cleanup of everything the test may attach to it.
func createTestUser(t *testing.T, pool *pgxpool.Pool, users *UserService) *user.User {
	t.Helper()

	suffix := uuid.New().String()
	name := "Test User"
	u, isNew, err := users.UpsertByGoogleID(context.Background(), &user.UpsertRequest{
		GoogleID: "google_test_" + suffix,
		Email:    fmt.Sprintf("test+%s@example.com", suffix),
		Name:     &name,
	})
	require.NoError(t, err)
	require.True(t, isNew)

	cleanupUser(t, pool, u.ID)
	return u
}

// cleanupUser removes the user's rows in reverse dependency order after
// the test. Statements run best-effort; a failed delete only logs.
func cleanupUser(t *testing.T, pool *pgxpool.Pool, userID string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		couples := `SELECT id FROM couples WHERE user_id_1 = $1 OR user_id_2 = $1`
		stmts := []string{
			`DELETE FROM couple_habit_completions WHERE habit_id IN (SELECT id FROM couple_habits WHERE couple_id IN (` + couples + `))`,
			`DELETE FROM couple_habits WHERE couple_id IN (` + couples + `)`,
			`DELETE FROM couple_goal_progress_log WHERE goal_id IN (SELECT id FROM couple_goals WHERE couple_id IN (` + couples + `))`,
			`DELETE FROM couple_goals WHERE couple_id IN (` + couples + `)`,
			`DELETE FROM couples WHERE user_id_1 = $1 OR user_id_2 = $1`,
			`DELETE FROM partner_invites WHERE from_user_id = $1`,
			`DELETE FROM habit_completions WHERE habit_id IN (SELECT id FROM habits WHERE user_id = $1)`,
			`DELETE FROM habits WHERE user_id = $1`,
			`DELETE FROM goal_progress_log WHERE goal_id IN (SELECT id FROM personal_goals WHERE user_id = $1)`,
			`DELETE FROM personal_goals WHERE user_id = $1`,
			`DELETE FROM tasks WHERE entry_id IN (SELECT id FROM daily_entries WHERE user_id = $1)`,
			`DELETE FROM daily_entries WHERE user_id = $1`,
			`DELETE FROM users WHERE id = $1`,
		}
		for _, q := range stmts {
			if _, err := pool.Exec(ctx, q, userID); err != nil {
				t.Logf("Warning: cleanup statement failed: %v", err)
			}
		}
	})
}
