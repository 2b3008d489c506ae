package dates

import (
	"time"
)

const dateLayout = "2006-01-02"

// weekdayTokens is indexed Monday first, matching how target days are
// stored ("mon".."sun").
var weekdayTokens = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Clock resolves "today" in a single reference timezone so that day
// boundaries are the same no matter where the process runs. All date math
// in the app goes through a Clock instance built in main; nothing reads
// ambient local time.
type Clock struct {
	loc   *time.Location
	nowFn func() time.Time
}

func NewClock(tz string) (*Clock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, nowFn: time.Now}, nil
}

// NewClockAt returns a clock frozen at the given instant, for tests.
func NewClockAt(tz string, at time.Time) (*Clock, error) {
	c, err := NewClock(tz)
	if err != nil {
		return nil, err
	}
	c.nowFn = func() time.Time { return at }
	return c, nil
}

func (c *Clock) Now() time.Time {
	return c.nowFn().In(c.loc)
}

// Today returns the current date as an ISO date string.
func (c *Clock) Today() string {
	return c.Now().Format(dateLayout)
}

// WeekRange returns the Monday..Sunday bounds (inclusive, ISO date
// strings) of the week containing t. Sunday is the last day of the week.
func WeekRange(t time.Time) (start, end string) {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(dateLayout), sunday.Format(dateLayout)
}

// MonthRange returns the first..last calendar day of t's month.
func MonthRange(t time.Time) (start, end string) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return first.Format(dateLayout), last.Format(dateLayout)
}

// WeekdayToken maps t to one of mon,tue,wed,thu,fri,sat,sun.
func WeekdayToken(t time.Time) string {
	return weekdayTokens[(int(t.Weekday())+6)%7]
}

// WeekdayIndex maps a weekday token to its position in the Monday-first
// week (mon=0 .. sun=6).
func WeekdayIndex(token string) (int, bool) {
	for i, d := range weekdayTokens {
		if d == token {
			return i, true
		}
	}
	return 0, false
}

// ParseDate parses an ISO date string in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, loc)
}

// IsValidDate reports whether s is a well-formed ISO date.
func IsValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
