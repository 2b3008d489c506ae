package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/dates"
	"oritualAPI/internal/goal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GoalService struct {
	db    *pgxpool.Pool
	clock *dates.Clock
}

func NewGoalService(db *pgxpool.Pool, clock *dates.Clock) *GoalService {
	return &GoalService{db: db, clock: clock}
}

const goalColumns = `id, user_id, title, target_value, current_value, created_at, deleted_at`

func scanGoal(row pgx.Row) (*goal.PersonalGoal, error) {
	g := &goal.PersonalGoal{}
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.Title,
		&g.TargetValue,
		&g.CurrentValue,
		&g.CreatedAt,
		&g.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) GetGoals(ctx context.Context, userID string) ([]*goal.PersonalGoal, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+goalColumns+`
	FROM personal_goals
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	defer rows.Close()

	goals := []*goal.PersonalGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) CreateGoal(ctx context.Context, userID string, req *goal.CreateGoalRequest) (*goal.PersonalGoal, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	if req.TargetValue <= 0 {
		return nil, fmt.Errorf("%w: target value must be positive", apperr.ErrValidation)
	}

	g, err := scanGoal(s.db.QueryRow(ctx, `
	INSERT INTO personal_goals (id, user_id, title, target_value, current_value, created_at)
	VALUES ($1, $2, $3, $4, 0, $5)
	RETURNING `+goalColumns+`
	`, uuid.New().String(), userID, req.Title, req.TargetValue, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return g, nil
}

// UpdateProgress sets the goal's current value and appends a progress-log
// row carrying the previous value. The row lock keeps concurrent updates
// from logging a stale previous value or losing a write.
func (s *GoalService) UpdateProgress(ctx context.Context, userID string, req *goal.UpdateProgressRequest) error {
	if req.NewValue < 0 {
		return fmt.Errorf("%w: progress value must not be negative", apperr.ErrValidation)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID string
	var previousValue int
	var deletedAt *time.Time
	err = tx.QueryRow(ctx, `
	SELECT user_id, current_value, deleted_at
	FROM personal_goals
	WHERE id = $1
	FOR UPDATE
	`, req.GoalID).Scan(&ownerID, &previousValue, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("failed to lock goal: %w", err)
	}
	if deletedAt != nil {
		return apperr.ErrNotFound
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	if _, err := tx.Exec(ctx,
		`UPDATE personal_goals SET current_value = $2 WHERE id = $1`,
		req.GoalID, req.NewValue); err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	if _, err := tx.Exec(ctx, `
	INSERT INTO goal_progress_log (id, goal_id, previous_value, new_value, note, date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New().String(), req.GoalID, previousValue, req.NewValue, req.Note,
		s.clock.Today(), time.Now()); err != nil {
		return fmt.Errorf("failed to log progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit progress update: %w", err)
	}
	return nil
}

// GetProgressLog returns the append-only history for a goal the user
// owns. The log stays readable after the goal is soft-deleted.
func (s *GoalService) GetProgressLog(ctx context.Context, userID, goalID string) ([]*goal.ProgressLogEntry, error) {
	var ownerID string
	err := s.db.QueryRow(ctx,
		`SELECT user_id FROM personal_goals WHERE id = $1`, goalID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve goal owner: %w", err)
	}
	if ownerID != userID {
		return nil, apperr.ErrUnauthorized
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, goal_id, previous_value, new_value, note, date, created_at
	FROM goal_progress_log
	WHERE goal_id = $1
	ORDER BY created_at DESC
	`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress log: %w", err)
	}
	defer rows.Close()

	log := []*goal.ProgressLogEntry{}
	for rows.Next() {
		e := &goal.ProgressLogEntry{}
		if err := rows.Scan(&e.ID, &e.GoalID, &e.PreviousValue, &e.NewValue,
			&e.Note, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		log = append(log, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log: %w", err)
	}
	return log, nil
}

func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	var ownerID string
	var deletedAt *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT user_id, deleted_at FROM personal_goals WHERE id = $1`,
		goalID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("failed to resolve goal owner: %w", err)
	}
	if deletedAt != nil {
		return apperr.ErrNotFound
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx,
		`UPDATE personal_goals SET deleted_at = $2 WHERE id = $1`,
		goalID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}
