package habit

import (
	"encoding/json"
	"time"
)

const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

type Habit struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Title          string     `json:"title"`
	FrequencyType  string     `json:"frequencyType"` // "weekly" | "monthly"
	FrequencyValue int        `json:"frequencyValue"`
	TargetDays     *string    `json:"targetDays,omitempty"` // JSON: '["mon","wed","fri"]'
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

type Completion struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

type CoupleHabit struct {
	ID             string     `json:"id"`
	CoupleID       string     `json:"coupleId"`
	Title          string     `json:"title"`
	FrequencyType  string     `json:"frequencyType"`
	FrequencyValue int        `json:"frequencyValue"`
	TargetDays     *string    `json:"targetDays,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

type CoupleCompletion struct {
	ID             string    `json:"id"`
	HabitID        string    `json:"habitId"`
	Date           string    `json:"date"`
	Completed      bool      `json:"completed"`
	MarkedByUserID *string   `json:"markedByUserId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CreateHabitRequest struct {
	Title          string
	FrequencyType  string
	FrequencyValue int
	TargetDays     []string
}

// WithStatus is a habit decorated with its completion state for one day,
// merged across personal and couple habits on the today view.
type WithStatus struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	FrequencyType    string  `json:"frequencyType"`
	FrequencyValue   int     `json:"frequencyValue"`
	TargetDays       *string `json:"targetDays,omitempty"`
	CompletedToday   bool    `json:"completedToday"`
	IsCouple         bool    `json:"isCouple"`
	MonthlyCompleted int     `json:"monthlyCompleted"`
	MonthlyTarget    int     `json:"monthlyTarget"`
}

// ParseTargetDays decodes the serialized weekday-token list. A nil or
// malformed column yields an empty set rather than an error: habits
// created before target days existed still have to load.
func ParseTargetDays(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var days []string
	if err := json.Unmarshal([]byte(*raw), &days); err != nil {
		return nil
	}
	return days
}

// EncodeTargetDays serializes a weekday-token list for storage.
func EncodeTargetDays(days []string) (string, error) {
	b, err := json.Marshal(days)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ScheduledOn reports whether a habit with the given frequency metadata
// should appear on the given weekday. Monthly habits always appear as a
// reminder; weekly habits appear only on their target days.
func ScheduledOn(frequencyType string, targetDays *string, weekdayToken string) bool {
	if frequencyType == FrequencyWeekly {
		for _, d := range ParseTargetDays(targetDays) {
			if d == weekdayToken {
				return true
			}
		}
		return false
	}
	return frequencyType == FrequencyMonthly
}
