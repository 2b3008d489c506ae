package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, google_id, email, name, timezone, affirmation, onboarding_completed,
	is_premium, premium_purchased_at, stripe_customer_id, created_at, deleted_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.Name,
		&u.Timezone,
		&u.Affirmation,
		&u.OnboardingCompleted,
		&u.IsPremium,
		&u.PremiumPurchasedAt,
		&u.StripeCustomerID,
		&u.CreatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*user.User, error) {
	query := `
	SELECT ` + userColumns + `
	FROM users
	WHERE id = $1 AND deleted_at IS NULL
	`
	return scanUser(s.db.QueryRow(ctx, query, userID))
}

// UpsertByGoogleID creates the user on first login or returns the existing
// record keyed by the provider's subject id. The second result reports
// whether a new user was created.
func (s *UserService) UpsertByGoogleID(ctx context.Context, req *user.UpsertRequest) (*user.User, bool, error) {
	existing, err := scanUser(s.db.QueryRow(ctx, `
	SELECT `+userColumns+`
	FROM users
	WHERE google_id = $1 AND deleted_at IS NULL
	`, req.GoogleID))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	query := `
	INSERT INTO users (id, google_id, email, name, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + userColumns + `
	`
	created, err := scanUser(s.db.QueryRow(ctx, query,
		uuid.New().String(), req.GoogleID, req.Email, req.Name, time.Now()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return created, true, nil
}

func (s *UserService) SaveAffirmation(ctx context.Context, userID, affirmation string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET affirmation = $2 WHERE id = $1 AND deleted_at IS NULL`,
		userID, affirmation)
	if err != nil {
		return fmt.Errorf("failed to save affirmation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *UserService) UpdateSettings(ctx context.Context, userID string, req *user.UpdateSettingsRequest) error {
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", apperr.ErrValidation, *req.Timezone)
		}
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE users
	SET name = COALESCE($2, name), timezone = COALESCE($3, timezone)
	WHERE id = $1 AND deleted_at IS NULL
	`, userID, req.Name, req.Timezone)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *UserService) CompleteOnboarding(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET onboarding_completed = TRUE WHERE id = $1 AND deleted_at IS NULL`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to complete onboarding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ActivatePremium flips the premium flag after a confirmed payment. The
// conditional update makes webhook replays harmless: once premium, the
// purchase timestamp and customer reference never change again.
func (s *UserService) ActivatePremium(ctx context.Context, userID, stripeCustomerID string) error {
	tag, err := s.db.Exec(ctx, `
	UPDATE users
	SET is_premium = TRUE, stripe_customer_id = $2, premium_purchased_at = $3
	WHERE id = $1 AND is_premium = FALSE AND deleted_at IS NULL
	`, userID, stripeCustomerID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to activate premium: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// either a replayed event (already premium) or an unknown user
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`,
			userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return apperr.ErrNotFound
		}
	}
	return nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
