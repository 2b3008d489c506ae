package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/dates"
	"oritualAPI/internal/habit"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HabitService struct {
	db    *pgxpool.Pool
	clock *dates.Clock
}

func NewHabitService(db *pgxpool.Pool, clock *dates.Clock) *HabitService {
	return &HabitService{db: db, clock: clock}
}

const habitColumns = `id, user_id, title, frequency_type, frequency_value, target_days,
	active, created_at, deleted_at`

func scanHabit(row pgx.Row) (*habit.Habit, error) {
	h := &habit.Habit{}
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Title,
		&h.FrequencyType,
		&h.FrequencyValue,
		&h.TargetDays,
		&h.Active,
		&h.CreatedAt,
		&h.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}
	return h, nil
}

func validateHabitRequest(req *habit.CreateHabitRequest) error {
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	switch req.FrequencyType {
	case habit.FrequencyWeekly:
		if len(req.TargetDays) == 0 {
			return fmt.Errorf("%w: weekly habits need at least one target day", apperr.ErrValidation)
		}
		for _, d := range req.TargetDays {
			if _, ok := dates.WeekdayIndex(d); !ok {
				return fmt.Errorf("%w: unknown weekday %q", apperr.ErrValidation, d)
			}
		}
	case habit.FrequencyMonthly:
		if req.FrequencyValue <= 0 {
			return fmt.Errorf("%w: monthly target must be positive", apperr.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown frequency type %q", apperr.ErrValidation, req.FrequencyType)
	}
	return nil
}

func (s *HabitService) GetHabits(ctx context.Context, userID string) ([]*habit.Habit, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+habitColumns+`
	FROM habits
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

func (s *HabitService) GetActiveHabits(ctx context.Context, userID string) ([]*habit.Habit, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+habitColumns+`
	FROM habits
	WHERE user_id = $1 AND active = TRUE AND deleted_at IS NULL
	ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

func (s *HabitService) CreateHabit(ctx context.Context, userID string, req *habit.CreateHabitRequest) (*habit.Habit, error) {
	if err := validateHabitRequest(req); err != nil {
		return nil, err
	}

	var targetDays *string
	frequencyValue := req.FrequencyValue
	if req.FrequencyType == habit.FrequencyWeekly {
		encoded, err := habit.EncodeTargetDays(req.TargetDays)
		if err != nil {
			return nil, fmt.Errorf("failed to encode target days: %w", err)
		}
		targetDays = &encoded
		// weekly target is the number of scheduled days
		frequencyValue = len(req.TargetDays)
	}

	h, err := scanHabit(s.db.QueryRow(ctx, `
	INSERT INTO habits (id, user_id, title, frequency_type, frequency_value, target_days, active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
	RETURNING `+habitColumns+`
	`, uuid.New().String(), userID, req.Title, req.FrequencyType, frequencyValue,
		targetDays, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}
	return h, nil
}

func (s *HabitService) habitOwner(ctx context.Context, habitID string) (string, error) {
	var ownerID string
	var deletedAt *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT user_id, deleted_at FROM habits WHERE id = $1`, habitID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve habit owner: %w", err)
	}
	if deletedAt != nil {
		return "", apperr.ErrNotFound
	}
	return ownerID, nil
}

// SetActive pauses or resumes a habit without touching its history.
func (s *HabitService) SetActive(ctx context.Context, userID, habitID string, active bool) error {
	ownerID, err := s.habitOwner(ctx, habitID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx,
		`UPDATE habits SET active = $2 WHERE id = $1`, habitID, active)
	if err != nil {
		return fmt.Errorf("failed to set habit active: %w", err)
	}
	return nil
}

func (s *HabitService) DeleteHabit(ctx context.Context, userID, habitID string) error {
	ownerID, err := s.habitOwner(ctx, habitID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx,
		`UPDATE habits SET deleted_at = $2 WHERE id = $1`, habitID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return nil
}

// ToggleCompletion upserts the completion row for (habit, date). The
// unique index on (habit_id, date) guarantees at most one row per day.
func (s *HabitService) ToggleCompletion(ctx context.Context, userID, habitID string, completed bool) error {
	ownerID, err := s.habitOwner(ctx, habitID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO habit_completions (id, habit_id, date, completed, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (habit_id, date)
	DO UPDATE SET completed = $4
	`, uuid.New().String(), habitID, s.clock.Today(), completed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to toggle completion: %w", err)
	}
	return nil
}

// GetCompletions returns the user's habit completions inside a date
// window, for the adherence rollups and the today view.
func (s *HabitService) GetCompletions(ctx context.Context, userID, startDate, endDate string) ([]*habit.Completion, error) {
	rows, err := s.db.Query(ctx, `
	SELECT c.id, c.habit_id, c.date, c.completed, c.created_at
	FROM habit_completions c
	JOIN habits h ON h.id = c.habit_id
	WHERE h.user_id = $1 AND c.date >= $2 AND c.date <= $3
	`, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get completions: %w", err)
	}
	defer rows.Close()

	completions := []*habit.Completion{}
	for rows.Next() {
		c := &habit.Completion{}
		if err := rows.Scan(&c.ID, &c.HabitID, &c.Date, &c.Completed, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completions: %w", err)
	}
	return completions, nil
}
