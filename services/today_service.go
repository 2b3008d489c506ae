package services

import (
	"context"
	"errors"
	"fmt"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/dates"
	"oritualAPI/internal/habit"
	"oritualAPI/internal/journal"
)

// DayView is the composed payload for one journal day: the entry, its
// tasks, and the habits scheduled that day (personal and shared merged)
// with their completion state.
type DayView struct {
	Entry       *journal.DailyEntry `json:"entry"`
	Tasks       []*journal.Task     `json:"tasks"`
	Habits      []habit.WithStatus  `json:"habits"`
	Affirmation *string             `json:"affirmation,omitempty"`
	Date        string              `json:"date"`
	ReadOnly    bool                `json:"readOnly"`
}

type TodayService struct {
	clock   *dates.Clock
	users   *UserService
	journal *JournalService
	habits  *HabitService
	couples *CoupleService
}

func NewTodayService(clock *dates.Clock, users *UserService, journal *JournalService, habits *HabitService, couples *CoupleService) *TodayService {
	return &TodayService{clock: clock, users: users, journal: journal, habits: habits, couples: couples}
}

// GetToday lazily creates today's entry and assembles the live view.
// Monthly habits carry their month-to-date completion count so the UI
// can show "2 of 4 this month".
func (s *TodayService) GetToday(ctx context.Context, userID string) (*DayView, error) {
	today := s.clock.Today()
	now := s.clock.Now()
	weekday := dates.WeekdayToken(now)
	monthStart, monthEnd := dates.MonthRange(now)

	entry, err := s.journal.GetOrCreateTodayEntry(ctx, userID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.journal.GetTasksForEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	view := &DayView{
		Entry:  entry,
		Tasks:  tasks,
		Habits: []habit.WithStatus{},
		Date:   today,
	}

	personal, err := s.habits.GetActiveHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	monthCompletions, err := s.habits.GetCompletions(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	for _, h := range personal {
		if !habit.ScheduledOn(h.FrequencyType, h.TargetDays, weekday) {
			continue
		}
		view.Habits = append(view.Habits, personalStatus(h, monthCompletions, today))
	}

	_, coupleErr := s.couples.GetCouple(ctx, userID)
	if coupleErr != nil && !errors.Is(coupleErr, apperr.ErrNotFound) {
		return nil, coupleErr
	}
	if coupleErr == nil {
		shared, err := s.couples.GetActiveHabits(ctx, userID)
		if err != nil {
			return nil, err
		}
		sharedCompletions, err := s.couples.GetHabitCompletions(ctx, userID, monthStart, monthEnd)
		if err != nil {
			return nil, err
		}
		for _, h := range shared {
			if !habit.ScheduledOn(h.FrequencyType, h.TargetDays, weekday) {
				continue
			}
			view.Habits = append(view.Habits, coupleStatus(h, sharedCompletions, today))
		}
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.Affirmation = u.Affirmation

	return view, nil
}

// GetDay returns the read-only view of a past date. Today and future
// dates are rejected; the caller should use GetToday for the live day.
func (s *TodayService) GetDay(ctx context.Context, userID, date string) (*DayView, error) {
	if !dates.IsValidDate(date) {
		return nil, fmt.Errorf("%w: malformed date %q", apperr.ErrValidation, date)
	}
	today := s.clock.Today()
	if date >= today {
		return nil, fmt.Errorf("%w: date must be in the past", apperr.ErrValidation)
	}

	view := &DayView{
		Tasks:    []*journal.Task{},
		Habits:   []habit.WithStatus{},
		Date:     date,
		ReadOnly: true,
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.Affirmation = u.Affirmation

	entry, err := s.journal.GetEntryByDate(ctx, userID, date)
	if errors.Is(err, apperr.ErrNotFound) {
		// nothing was journaled that day
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	view.Entry = entry

	if view.Tasks, err = s.journal.GetTasksForEntry(ctx, entry.ID); err != nil {
		return nil, err
	}

	loc := s.clock.Now().Location()
	day, err := dates.ParseDate(date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed date %q", apperr.ErrValidation, date)
	}
	weekday := dates.WeekdayToken(day)

	personal, err := s.habits.GetHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	dayCompletions, err := s.habits.GetCompletions(ctx, userID, date, date)
	if err != nil {
		return nil, err
	}
	for _, h := range personal {
		if !habit.ScheduledOn(h.FrequencyType, h.TargetDays, weekday) {
			continue
		}
		ws := personalStatus(h, dayCompletions, date)
		// month-to-date counters only make sense on the live day
		ws.MonthlyCompleted, ws.MonthlyTarget = 0, 0
		view.Habits = append(view.Habits, ws)
	}

	_, coupleErr := s.couples.GetCouple(ctx, userID)
	if coupleErr != nil && !errors.Is(coupleErr, apperr.ErrNotFound) {
		return nil, coupleErr
	}
	if coupleErr == nil {
		shared, err := s.couples.GetHabits(ctx, userID)
		if err != nil {
			return nil, err
		}
		sharedCompletions, err := s.couples.GetHabitCompletions(ctx, userID, date, date)
		if err != nil {
			return nil, err
		}
		for _, h := range shared {
			if !habit.ScheduledOn(h.FrequencyType, h.TargetDays, weekday) {
				continue
			}
			ws := coupleStatus(h, sharedCompletions, date)
			ws.MonthlyCompleted, ws.MonthlyTarget = 0, 0
			view.Habits = append(view.Habits, ws)
		}
	}

	return view, nil
}

func personalStatus(h *habit.Habit, completions []*habit.Completion, day string) habit.WithStatus {
	ws := habit.WithStatus{
		ID:             h.ID,
		Title:          h.Title,
		FrequencyType:  h.FrequencyType,
		FrequencyValue: h.FrequencyValue,
		TargetDays:     h.TargetDays,
	}
	for _, c := range completions {
		if c.HabitID != h.ID || !c.Completed {
			continue
		}
		if c.Date == day {
			ws.CompletedToday = true
		}
		if h.FrequencyType == habit.FrequencyMonthly {
			ws.MonthlyCompleted++
		}
	}
	if h.FrequencyType == habit.FrequencyMonthly {
		ws.MonthlyTarget = h.FrequencyValue
	}
	return ws
}

func coupleStatus(h *habit.CoupleHabit, completions []*habit.CoupleCompletion, day string) habit.WithStatus {
	ws := habit.WithStatus{
		ID:             h.ID,
		Title:          h.Title,
		FrequencyType:  h.FrequencyType,
		FrequencyValue: h.FrequencyValue,
		TargetDays:     h.TargetDays,
		IsCouple:       true,
	}
	for _, c := range completions {
		if c.HabitID != h.ID || !c.Completed {
			continue
		}
		if c.Date == day {
			ws.CompletedToday = true
		}
		if h.FrequencyType == habit.FrequencyMonthly {
			ws.MonthlyCompleted++
		}
	}
	if h.FrequencyType == habit.FrequencyMonthly {
		ws.MonthlyTarget = h.FrequencyValue
	}
	return ws
}
