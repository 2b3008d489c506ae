package journal

import "time"

type DailyEntry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Date          string     `json:"date"`
	Gratitude     *string    `json:"gratitude,omitempty"`
	Intention     *string    `json:"intention,omitempty"`
	GreatThings   *string    `json:"greatThings,omitempty"`
	CouldHaveDone *string    `json:"couldHaveDone,omitempty"`
	TomorrowPlans *string    `json:"tomorrowPlans,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// HasContent reports whether any journal text has been written for the day.
func (e *DailyEntry) HasContent() bool {
	for _, f := range []*string{e.Gratitude, e.Intention, e.GreatThings} {
		if f != nil && *f != "" {
			return true
		}
	}
	return false
}

// UpdateEntryRequest updates only the fields that were posted; nil means
// "not sent", so a client can save one textarea without clobbering the rest.
type UpdateEntryRequest struct {
	Gratitude     *string
	Intention     *string
	GreatThings   *string
	CouldHaveDone *string
	TomorrowPlans *string
}

func (r *UpdateEntryRequest) Empty() bool {
	return r.Gratitude == nil && r.Intention == nil && r.GreatThings == nil &&
		r.CouldHaveDone == nil && r.TomorrowPlans == nil
}

type Task struct {
	ID          string     `json:"id"`
	EntryID     string     `json:"entryId"`
	Category    string     `json:"category"` // "work" | "personal"
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}
