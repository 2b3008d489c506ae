package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/dates"
	"oritualAPI/internal/journal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JournalService struct {
	db    *pgxpool.Pool
	clock *dates.Clock
}

func NewJournalService(db *pgxpool.Pool, clock *dates.Clock) *JournalService {
	return &JournalService{db: db, clock: clock}
}

const entryColumns = `id, user_id, date, gratitude, intention, great_things, could_have_done,
	tomorrow_plans, created_at, updated_at`

func scanEntry(row pgx.Row) (*journal.DailyEntry, error) {
	e := &journal.DailyEntry{}
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Date,
		&e.Gratitude,
		&e.Intention,
		&e.GreatThings,
		&e.CouldHaveDone,
		&e.TomorrowPlans,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	return e, nil
}

// GetOrCreateTodayEntry lazily creates the journal entry for today on
// first access. There is at most one entry per (user, date).
func (s *JournalService) GetOrCreateTodayEntry(ctx context.Context, userID string) (*journal.DailyEntry, error) {
	today := s.clock.Today()

	entry, err := scanEntry(s.db.QueryRow(ctx, `
	SELECT `+entryColumns+`
	FROM daily_entries
	WHERE user_id = $1 AND date = $2
	`, userID, today))
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	// ON CONFLICT keeps the unique (user, date) invariant under
	// concurrent first access to the same day
	entry, err = scanEntry(s.db.QueryRow(ctx, `
	INSERT INTO daily_entries (id, user_id, date, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, date) DO UPDATE SET user_id = daily_entries.user_id
	RETURNING `+entryColumns+`
	`, uuid.New().String(), userID, today, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return entry, nil
}

// GetEntryByDate returns the entry for a past date, or ErrNotFound when
// the user never opened the journal that day.
func (s *JournalService) GetEntryByDate(ctx context.Context, userID, date string) (*journal.DailyEntry, error) {
	return scanEntry(s.db.QueryRow(ctx, `
	SELECT `+entryColumns+`
	FROM daily_entries
	WHERE user_id = $1 AND date = $2
	`, userID, date))
}

// UpdateTodayEntry saves only the journal fields that were posted.
func (s *JournalService) UpdateTodayEntry(ctx context.Context, userID string, req *journal.UpdateEntryRequest) error {
	if req.Empty() {
		return fmt.Errorf("%w: no journal fields submitted", apperr.ErrValidation)
	}

	if _, err := s.GetOrCreateTodayEntry(ctx, userID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE daily_entries
	SET gratitude       = COALESCE($3, gratitude),
	    intention       = COALESCE($4, intention),
	    great_things    = COALESCE($5, great_things),
	    could_have_done = COALESCE($6, could_have_done),
	    tomorrow_plans  = COALESCE($7, tomorrow_plans),
	    updated_at      = $8
	WHERE user_id = $1 AND date = $2
	`, userID, s.clock.Today(),
		req.Gratitude, req.Intention, req.GreatThings, req.CouldHaveDone, req.TomorrowPlans,
		time.Now())
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *JournalService) GetRecentEntries(ctx context.Context, userID string, limit int) ([]*journal.DailyEntry, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+entryColumns+`
	FROM daily_entries
	WHERE user_id = $1
	ORDER BY date DESC
	LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent entries: %w", err)
	}
	defer rows.Close()

	var entries []*journal.DailyEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

const taskColumns = `id, entry_id, category, description, completed, position, created_at, deleted_at`

func scanTask(row pgx.Row) (*journal.Task, error) {
	t := &journal.Task{}
	err := row.Scan(
		&t.ID,
		&t.EntryID,
		&t.Category,
		&t.Description,
		&t.Completed,
		&t.Position,
		&t.CreatedAt,
		&t.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return t, nil
}

func (s *JournalService) GetTasksForEntry(ctx context.Context, entryID string) ([]*journal.Task, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+taskColumns+`
	FROM tasks
	WHERE entry_id = $1 AND deleted_at IS NULL
	ORDER BY position
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*journal.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// AddTask appends a task to today's entry. Position is the count of live
// tasks at creation time; positions are not reused after deletes.
func (s *JournalService) AddTask(ctx context.Context, userID, category, description string) (*journal.Task, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", apperr.ErrValidation)
	}
	if category != "work" && category != "personal" {
		return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrValidation, category)
	}

	entry, err := s.GetOrCreateTodayEntry(ctx, userID)
	if err != nil {
		return nil, err
	}

	task, err := scanTask(s.db.QueryRow(ctx, `
	INSERT INTO tasks (id, entry_id, category, description, position, created_at)
	VALUES ($1, $2, $3, $4,
		(SELECT COUNT(*) FROM tasks WHERE entry_id = $2 AND deleted_at IS NULL),
		$5)
	RETURNING `+taskColumns+`
	`, uuid.New().String(), entry.ID, category, description, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}
	return task, nil
}

// taskOwner resolves who owns the entry a task belongs to, ignoring the
// soft-delete state of the task itself.
func (s *JournalService) taskOwner(ctx context.Context, taskID string) (string, error) {
	var ownerID string
	var deletedAt *time.Time
	err := s.db.QueryRow(ctx, `
	SELECT e.user_id, t.deleted_at
	FROM tasks t
	JOIN daily_entries e ON e.id = t.entry_id
	WHERE t.id = $1
	`, taskID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve task owner: %w", err)
	}
	if deletedAt != nil {
		return "", apperr.ErrNotFound
	}
	return ownerID, nil
}

func (s *JournalService) ToggleTask(ctx context.Context, userID, taskID string, completed bool) error {
	ownerID, err := s.taskOwner(ctx, taskID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx,
		`UPDATE tasks SET completed = $2 WHERE id = $1 AND deleted_at IS NULL`,
		taskID, completed)
	if err != nil {
		return fmt.Errorf("failed to toggle task: %w", err)
	}
	return nil
}

func (s *JournalService) DeleteTask(ctx context.Context, userID, taskID string) error {
	ownerID, err := s.taskOwner(ctx, taskID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx,
		`UPDATE tasks SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		taskID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
