package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/couple"
	"oritualAPI/internal/dates"
	"oritualAPI/internal/goal"
	"oritualAPI/internal/habit"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inviteTTL = 7 * 24 * time.Hour

type CoupleService struct {
	db    *pgxpool.Pool
	clock *dates.Clock
}

func NewCoupleService(db *pgxpool.Pool, clock *dates.Clock) *CoupleService {
	return &CoupleService{db: db, clock: clock}
}

// inviteCodeAlphabet avoids lookalike characters in codes users read out
// loud to each other.
const inviteCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateInviteCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

// GetCouple returns the user's active couple, or ErrNotFound when unpaired.
func (s *CoupleService) GetCouple(ctx context.Context, userID string) (*couple.Couple, error) {
	c := &couple.Couple{}
	err := s.db.QueryRow(ctx, `
	SELECT id, user_id_1, user_id_2, created_at, deleted_at
	FROM couples
	WHERE (user_id_1 = $1 OR user_id_2 = $1) AND deleted_at IS NULL
	`, userID).Scan(&c.ID, &c.UserID1, &c.UserID2, &c.CreatedAt, &c.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get couple: %w", err)
	}
	return c, nil
}

func (s *CoupleService) GetPartner(ctx context.Context, userID string) (*couple.Partner, error) {
	c, err := s.GetCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &couple.Partner{}
	err = s.db.QueryRow(ctx,
		`SELECT name, email FROM users WHERE id = $1 AND deleted_at IS NULL`,
		c.PartnerID(userID)).Scan(&p.Name, &p.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return p, nil
}

// GenerateInvite returns the creator's outstanding unused invite when one
// exists, otherwise mints a new code with a 7 day expiry.
func (s *CoupleService) GenerateInvite(ctx context.Context, userID string) (*couple.PartnerInvite, error) {
	if _, err := s.GetCouple(ctx, userID); err == nil {
		return nil, fmt.Errorf("%w: already paired", apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	inv := &couple.PartnerInvite{}
	err := s.db.QueryRow(ctx, `
	SELECT id, code, from_user_id, expires_at, used, created_at
	FROM partner_invites
	WHERE from_user_id = $1 AND used = FALSE
	`, userID).Scan(&inv.ID, &inv.Code, &inv.FromUserID, &inv.ExpiresAt, &inv.Used, &inv.CreatedAt)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check pending invite: %w", err)
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(ctx, `
	INSERT INTO partner_invites (id, code, from_user_id, expires_at, used, created_at)
	VALUES ($1, $2, $3, $4, FALSE, $5)
	RETURNING id, code, from_user_id, expires_at, used, created_at
	`, uuid.New().String(), code, userID, time.Now().Add(inviteTTL), time.Now()).
		Scan(&inv.ID, &inv.Code, &inv.FromUserID, &inv.ExpiresAt, &inv.Used, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return inv, nil
}

// GetPendingInvite returns the user's outstanding unused, unexpired
// invite, or ErrNotFound.
func (s *CoupleService) GetPendingInvite(ctx context.Context, userID string) (*couple.PartnerInvite, error) {
	inv := &couple.PartnerInvite{}
	err := s.db.QueryRow(ctx, `
	SELECT id, code, from_user_id, expires_at, used, created_at
	FROM partner_invites
	WHERE from_user_id = $1 AND used = FALSE AND expires_at > $2
	`, userID, time.Now()).Scan(&inv.ID, &inv.Code, &inv.FromUserID, &inv.ExpiresAt, &inv.Used, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pending invite: %w", err)
	}
	return inv, nil
}

// RedeemInvite pairs the redeemer with the invite's creator. Marking the
// invite used and inserting the couple happen in one transaction; the
// conditional update on `used` means two concurrent redemptions of the
// same code cannot both succeed.
func (s *CoupleService) RedeemInvite(ctx context.Context, userID, code string) (*couple.Couple, error) {
	// codes are stored upper-case; users type them in either case
	code = strings.ToUpper(strings.TrimSpace(code))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv := &couple.PartnerInvite{}
	err = tx.QueryRow(ctx, `
	SELECT id, code, from_user_id, expires_at, used, created_at
	FROM partner_invites
	WHERE code = $1 AND used = FALSE
	`, code).Scan(&inv.ID, &inv.Code, &inv.FromUserID, &inv.ExpiresAt, &inv.Used, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to look up invite: %w", err)
	}

	// self-redemption is rejected before the expiry check so the error
	// does not depend on timing
	if inv.FromUserID == userID {
		return nil, apperr.ErrSelfRedemption
	}
	if time.Now().After(inv.ExpiresAt) {
		return nil, apperr.ErrExpired
	}

	// a user belongs to at most one active couple
	var paired bool
	err = tx.QueryRow(ctx, `
	SELECT EXISTS(
		SELECT 1 FROM couples
		WHERE (user_id_1 = ANY($1) OR user_id_2 = ANY($1)) AND deleted_at IS NULL
	)
	`, []string{userID, inv.FromUserID}).Scan(&paired)
	if err != nil {
		return nil, fmt.Errorf("failed to check pairing state: %w", err)
	}
	if paired {
		return nil, fmt.Errorf("%w: already paired", apperr.ErrConflict)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE partner_invites SET used = TRUE WHERE id = $1 AND used = FALSE`, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invite used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// a concurrent redemption won the race
		return nil, apperr.ErrInvalidCode
	}

	c := &couple.Couple{}
	err = tx.QueryRow(ctx, `
	INSERT INTO couples (id, user_id_1, user_id_2, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id, user_id_1, user_id_2, created_at, deleted_at
	`, uuid.New().String(), inv.FromUserID, userID, time.Now()).
		Scan(&c.ID, &c.UserID1, &c.UserID2, &c.CreatedAt, &c.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create couple: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}
	return c, nil
}

// requireCouple resolves the acting user's active couple for ownership
// checks on couple-scoped entities.
func (s *CoupleService) requireCouple(ctx context.Context, userID string) (*couple.Couple, error) {
	c, err := s.GetCouple(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	return c, err
}

const coupleGoalColumns = `id, couple_id, title, target_value, current_value, created_at, deleted_at`

func scanCoupleGoal(row pgx.Row) (*goal.CoupleGoal, error) {
	g := &goal.CoupleGoal{}
	err := row.Scan(
		&g.ID,
		&g.CoupleID,
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
		return nil, fmt.Errorf("failed to scan couple goal: %w", err)
	}
	return g, nil
}

func (s *CoupleService) GetGoals(ctx context.Context, userID string) ([]*goal.CoupleGoal, error) {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT `+coupleGoalColumns+`
	FROM couple_goals
	WHERE couple_id = $1 AND deleted_at IS NULL
	ORDER BY created_at DESC
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get couple goals: %w", err)
	}
	defer rows.Close()

	goals := []*goal.CoupleGoal{}
	for rows.Next() {
		g, err := scanCoupleGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couple goals: %w", err)
	}
	return goals, nil
}

func (s *CoupleService) CreateGoal(ctx context.Context, userID string, req *goal.CreateGoalRequest) (*goal.CoupleGoal, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	if req.TargetValue <= 0 {
		return nil, fmt.Errorf("%w: target value must be positive", apperr.ErrValidation)
	}

	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	g, err := scanCoupleGoal(s.db.QueryRow(ctx, `
	INSERT INTO couple_goals (id, couple_id, title, target_value, current_value, created_at)
	VALUES ($1, $2, $3, $4, 0, $5)
	RETURNING `+coupleGoalColumns+`
	`, uuid.New().String(), c.ID, req.Title, req.TargetValue, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create couple goal: %w", err)
	}
	return g, nil
}

// UpdateGoalProgress mirrors the personal-goal update: row lock, value
// set, and append-only log (recording which partner made the change) in
// one transaction.
func (s *CoupleService) UpdateGoalProgress(ctx context.Context, userID string, req *goal.UpdateProgressRequest) error {
	if req.NewValue < 0 {
		return fmt.Errorf("%w: progress value must not be negative", apperr.ErrValidation)
	}

	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var coupleID string
	var previousValue int
	var deletedAt *time.Time
	err = tx.QueryRow(ctx, `
	SELECT couple_id, current_value, deleted_at
	FROM couple_goals
	WHERE id = $1
	FOR UPDATE
	`, req.GoalID).Scan(&coupleID, &previousValue, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("failed to lock couple goal: %w", err)
	}
	if deletedAt != nil {
		return apperr.ErrNotFound
	}
	if coupleID != c.ID {
		return apperr.ErrUnauthorized
	}

	if _, err := tx.Exec(ctx,
		`UPDATE couple_goals SET current_value = $2 WHERE id = $1`,
		req.GoalID, req.NewValue); err != nil {
		return fmt.Errorf("failed to update couple goal: %w", err)
	}

	if _, err := tx.Exec(ctx, `
	INSERT INTO couple_goal_progress_log (id, goal_id, user_id, previous_value, new_value, note, date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New().String(), req.GoalID, userID, previousValue, req.NewValue, req.Note,
		s.clock.Today(), time.Now()); err != nil {
		return fmt.Errorf("failed to log couple progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit couple progress update: %w", err)
	}
	return nil
}

// GetGoalProgressLog returns the shared goal's history, newest first.
// Either partner can read it, including after the goal is soft-deleted.
func (s *CoupleService) GetGoalProgressLog(ctx context.Context, userID, goalID string) ([]*goal.CoupleProgressLogEntry, error) {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	var coupleID string
	err = s.db.QueryRow(ctx,
		`SELECT couple_id FROM couple_goals WHERE id = $1`, goalID).Scan(&coupleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve couple goal: %w", err)
	}
	if coupleID != c.ID {
		return nil, apperr.ErrUnauthorized
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, goal_id, user_id, previous_value, new_value, note, date, created_at
	FROM couple_goal_progress_log
	WHERE goal_id = $1
	ORDER BY created_at DESC
	`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get couple progress log: %w", err)
	}
	defer rows.Close()

	log := []*goal.CoupleProgressLogEntry{}
	for rows.Next() {
		e := &goal.CoupleProgressLogEntry{}
		if err := rows.Scan(&e.ID, &e.GoalID, &e.UserID, &e.PreviousValue,
			&e.NewValue, &e.Note, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan couple log entry: %w", err)
		}
		log = append(log, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couple log: %w", err)
	}
	return log, nil
}

func (s *CoupleService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return err
	}

	var coupleID string
	var deletedAt *time.Time
	err = s.db.QueryRow(ctx,
		`SELECT couple_id, deleted_at FROM couple_goals WHERE id = $1`,
		goalID).Scan(&coupleID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("failed to resolve couple goal: %w", err)
	}
	if deletedAt != nil {
		return apperr.ErrNotFound
	}
	if coupleID != c.ID {
		return apperr.ErrUnauthorized
	}

	_, err = s.db.Exec(ctx,
		`UPDATE couple_goals SET deleted_at = $2 WHERE id = $1`, goalID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete couple goal: %w", err)
	}
	return nil
}

const coupleHabitColumns = `id, couple_id, title, frequency_type, frequency_value, target_days,
	active, created_at, deleted_at`

func scanCoupleHabit(row pgx.Row) (*habit.CoupleHabit, error) {
	h := &habit.CoupleHabit{}
	err := row.Scan(
		&h.ID,
		&h.CoupleID,
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
		return nil, fmt.Errorf("failed to scan couple habit: %w", err)
	}
	return h, nil
}

func (s *CoupleService) GetHabits(ctx context.Context, userID string) ([]*habit.CoupleHabit, error) {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.habitsForCouple(ctx, c.ID, false)
}

func (s *CoupleService) GetActiveHabits(ctx context.Context, userID string) ([]*habit.CoupleHabit, error) {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.habitsForCouple(ctx, c.ID, true)
}

func (s *CoupleService) habitsForCouple(ctx context.Context, coupleID string, activeOnly bool) ([]*habit.CoupleHabit, error) {
	query := `
	SELECT ` + coupleHabitColumns + `
	FROM couple_habits
	WHERE couple_id = $1 AND deleted_at IS NULL
	`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get couple habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.CoupleHabit{}
	for rows.Next() {
		h, err := scanCoupleHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couple habits: %w", err)
	}
	return habits, nil
}

func (s *CoupleService) CreateHabit(ctx context.Context, userID string, req *habit.CreateHabitRequest) (*habit.CoupleHabit, error) {
	if err := validateHabitRequest(req); err != nil {
		return nil, err
	}

	c, err := s.requireCouple(ctx, userID)
	if err != nil {
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
		frequencyValue = len(req.TargetDays)
	}

	h, err := scanCoupleHabit(s.db.QueryRow(ctx, `
	INSERT INTO couple_habits (id, couple_id, title, frequency_type, frequency_value, target_days, active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
	RETURNING `+coupleHabitColumns+`
	`, uuid.New().String(), c.ID, req.Title, req.FrequencyType, frequencyValue,
		targetDays, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create couple habit: %w", err)
	}
	return h, nil
}

func (s *CoupleService) coupleHabitScope(ctx context.Context, userID, habitID string) (*couple.Couple, error) {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	var coupleID string
	var deletedAt *time.Time
	err = s.db.QueryRow(ctx,
		`SELECT couple_id, deleted_at FROM couple_habits WHERE id = $1`,
		habitID).Scan(&coupleID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve couple habit: %w", err)
	}
	if deletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	if coupleID != c.ID {
		return nil, apperr.ErrUnauthorized
	}
	return c, nil
}

func (s *CoupleService) SetHabitActive(ctx context.Context, userID, habitID string, active bool) error {
	if _, err := s.coupleHabitScope(ctx, userID, habitID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx,
		`UPDATE couple_habits SET active = $2 WHERE id = $1`, habitID, active)
	if err != nil {
		return fmt.Errorf("failed to set couple habit active: %w", err)
	}
	return nil
}

func (s *CoupleService) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if _, err := s.coupleHabitScope(ctx, userID, habitID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx,
		`UPDATE couple_habits SET deleted_at = $2 WHERE id = $1`, habitID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete couple habit: %w", err)
	}
	return nil
}

// ToggleHabitCompletion upserts the couple completion row for today and
// records which partner marked it.
func (s *CoupleService) ToggleHabitCompletion(ctx context.Context, userID, habitID string, completed bool) error {
	if _, err := s.coupleHabitScope(ctx, userID, habitID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx, `
	INSERT INTO couple_habit_completions (id, habit_id, date, completed, marked_by_user_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (habit_id, date)
	DO UPDATE SET completed = $4, marked_by_user_id = $5
	`, uuid.New().String(), habitID, s.clock.Today(), completed, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to toggle couple completion: %w", err)
	}
	return nil
}

// GetHabitCompletions returns the couple's completions inside a date window.
func (s *CoupleService) GetHabitCompletions(ctx context.Context, userID, startDate, endDate string) ([]*habit.CoupleCompletion, error) {
	c, err := s.requireCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT c.id, c.habit_id, c.date, c.completed, c.marked_by_user_id, c.created_at
	FROM couple_habit_completions c
	JOIN couple_habits h ON h.id = c.habit_id
	WHERE h.couple_id = $1 AND c.date >= $2 AND c.date <= $3
	`, c.ID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get couple completions: %w", err)
	}
	defer rows.Close()

	completions := []*habit.CoupleCompletion{}
	for rows.Next() {
		cc := &habit.CoupleCompletion{}
		if err := rows.Scan(&cc.ID, &cc.HabitID, &cc.Date, &cc.Completed,
			&cc.MarkedByUserID, &cc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan couple completion: %w", err)
		}
		completions = append(completions, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couple completions: %w", err)
	}
	return completions, nil
}
