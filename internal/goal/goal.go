package goal

import "time"

type PersonalGoal struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Title        string     `json:"title"`
	TargetValue  int        `json:"targetValue"`
	CurrentValue int        `json:"currentValue"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// ProgressLogEntry is an append-only record of one progress update. Rows
// are never mutated or deleted, even when the goal itself is soft-deleted.
type ProgressLogEntry struct {
	ID            string    `json:"id"`
	GoalID        string    `json:"goalId"`
	PreviousValue int       `json:"previousValue"`
	NewValue      int       `json:"newValue"`
	Note          *string   `json:"note,omitempty"`
	Date          string    `json:"date"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CoupleGoal struct {
	ID           string     `json:"id"`
	CoupleID     string     `json:"coupleId"`
	Title        string     `json:"title"`
	TargetValue  int        `json:"targetValue"`
	CurrentValue int        `json:"currentValue"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// CoupleProgressLogEntry also records which partner made the update.
type CoupleProgressLogEntry struct {
	ID            string    `json:"id"`
	GoalID        string    `json:"goalId"`
	UserID        string    `json:"userId"`
	PreviousValue int       `json:"previousValue"`
	NewValue      int       `json:"newValue"`
	Note          *string   `json:"note,omitempty"`
	Date          string    `json:"date"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateGoalRequest struct {
	Title       string
	TargetValue int
}

type UpdateProgressRequest struct {
	GoalID   string
	NewValue int
	Note     *string
}
