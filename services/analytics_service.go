package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/dates"
	"oritualAPI/internal/habit"
	"oritualAPI/internal/stats"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsService composes the dashboard payload out of the entity
// services plus its own window queries. Whether couple habits count
// toward the adherence figures is an explicit configuration choice, not
// something individual call sites decide.
type AnalyticsService struct {
	db                  *pgxpool.Pool
	clock               *dates.Clock
	users               *UserService
	journal             *JournalService
	habits              *HabitService
	couples             *CoupleService
	goals               *GoalService
	includeCoupleHabits bool
}

func NewAnalyticsService(
	db *pgxpool.Pool,
	clock *dates.Clock,
	users *UserService,
	journal *JournalService,
	habits *HabitService,
	couples *CoupleService,
	goals *GoalService,
	includeCoupleHabits bool,
) *AnalyticsService {
	return &AnalyticsService{
		db:                  db,
		clock:               clock,
		users:               users,
		journal:             journal,
		habits:              habits,
		couples:             couples,
		goals:               goals,
		includeCoupleHabits: includeCoupleHabits,
	}
}

// taskWindowStats counts live tasks attached to the user's entries in a
// date window.
func (s *AnalyticsService) taskWindowStats(ctx context.Context, userID, startDate, endDate string) (stats.TaskStats, error) {
	var ts stats.TaskStats
	err := s.db.QueryRow(ctx, `
	SELECT COUNT(*), COALESCE(COUNT(*) FILTER (WHERE t.completed), 0)
	FROM tasks t
	JOIN daily_entries e ON e.id = t.entry_id
	WHERE e.user_id = $1
		AND e.date >= $2 AND e.date <= $3
		AND t.deleted_at IS NULL
	`, userID, startDate, endDate).Scan(&ts.Total, &ts.Completed)
	if err != nil {
		return ts, fmt.Errorf("failed to get task stats: %w", err)
	}
	if ts.Total > 0 {
		ts.Percent = int(math.Round(float64(ts.Completed) / float64(ts.Total) * 100))
	}
	return ts, nil
}

func habitInfos(personal []*habit.Habit, shared []*habit.CoupleHabit) []stats.HabitInfo {
	infos := make([]stats.HabitInfo, 0, len(personal)+len(shared))
	for _, h := range personal {
		infos = append(infos, stats.HabitInfo{
			ID:             h.ID,
			FrequencyType:  h.FrequencyType,
			FrequencyValue: h.FrequencyValue,
			TargetDays:     habit.ParseTargetDays(h.TargetDays),
		})
	}
	for _, h := range shared {
		infos = append(infos, stats.HabitInfo{
			ID:             h.ID,
			FrequencyType:  h.FrequencyType,
			FrequencyValue: h.FrequencyValue,
			TargetDays:     habit.ParseTargetDays(h.TargetDays),
		})
	}
	return infos
}

func completionRecords(personal []*habit.Completion, shared []*habit.CoupleCompletion) []stats.CompletionRecord {
	records := make([]stats.CompletionRecord, 0, len(personal)+len(shared))
	for _, c := range personal {
		records = append(records, stats.CompletionRecord{HabitID: c.HabitID, Date: c.Date, Completed: c.Completed})
	}
	for _, c := range shared {
		records = append(records, stats.CompletionRecord{HabitID: c.HabitID, Date: c.Date, Completed: c.Completed})
	}
	return records
}

func (s *AnalyticsService) GetDashboard(ctx context.Context, userID string) (*stats.Dashboard, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, coupleErr := s.couples.GetCouple(ctx, userID)
	hasCouple := coupleErr == nil
	if coupleErr != nil && !errors.Is(coupleErr, apperr.ErrNotFound) {
		return nil, coupleErr
	}

	dashboard := &stats.Dashboard{
		IsPremium: u.IsPremium,
		HasCouple: hasCouple,
	}

	// last 7 journal days, newest first
	entries, err := s.journal.GetRecentEntries(ctx, userID, 7)
	if err != nil {
		return nil, err
	}
	dashboard.RecentDays = []stats.DayStat{}
	for _, e := range entries {
		tasks, err := s.journal.GetTasksForEntry(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		ts := stats.TaskStats{Total: len(tasks)}
		for _, t := range tasks {
			if t.Completed {
				ts.Completed++
			}
		}
		if ts.Total > 0 {
			ts.Percent = int(math.Round(float64(ts.Completed) / float64(ts.Total) * 100))
		}
		dashboard.RecentDays = append(dashboard.RecentDays, stats.DayStat{
			Date:       e.Date,
			HasContent: e.HasContent(),
			TaskStats:  ts,
		})
	}

	now := s.clock.Now()
	weekStart, weekEnd := dates.WeekRange(now)
	monthStart, monthEnd := dates.MonthRange(now)
	today := s.clock.Today()

	// week- and month-to-date task totals; the window closes at today so
	// days that have not happened yet cannot dilute the percentage
	if dashboard.WeekTasks, err = s.taskWindowStats(ctx, userID, weekStart, today); err != nil {
		return nil, err
	}
	if dashboard.MonthTasks, err = s.taskWindowStats(ctx, userID, monthStart, today); err != nil {
		return nil, err
	}

	personalHabits, err := s.habits.GetActiveHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	weekCompletions, err := s.habits.GetCompletions(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	monthCompletions, err := s.habits.GetCompletions(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	var sharedHabits []*habit.CoupleHabit
	var sharedWeek, sharedMonth []*habit.CoupleCompletion
	if hasCouple && s.includeCoupleHabits {
		if sharedHabits, err = s.couples.GetActiveHabits(ctx, userID); err != nil {
			return nil, err
		}
		if sharedWeek, err = s.couples.GetHabitCompletions(ctx, userID, weekStart, weekEnd); err != nil {
			return nil, err
		}
		if sharedMonth, err = s.couples.GetHabitCompletions(ctx, userID, monthStart, monthEnd); err != nil {
			return nil, err
		}
	}

	infos := habitInfos(personalHabits, sharedHabits)
	todayIndex, _ := dates.WeekdayIndex(dates.WeekdayToken(now))
	dashboard.WeekHabits = stats.WeeklyAdherence(infos, completionRecords(weekCompletions, sharedWeek), todayIndex)
	dashboard.MonthHabits = stats.MonthlyAdherence(infos, completionRecords(monthCompletions, sharedMonth))

	personalGoals, err := s.goals.GetGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	dashboard.Goals = []stats.GoalProgress{}
	for _, g := range personalGoals {
		dashboard.Goals = append(dashboard.Goals, stats.GoalProgress{
			ID:           g.ID,
			Title:        g.Title,
			CurrentValue: g.CurrentValue,
			TargetValue:  g.TargetValue,
			Percent:      stats.GoalPercent(g.CurrentValue, g.TargetValue),
			IsCouple:     false,
		})
	}
	if hasCouple {
		coupleGoals, err := s.couples.GetGoals(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, g := range coupleGoals {
			dashboard.Goals = append(dashboard.Goals, stats.GoalProgress{
				ID:           g.ID,
				Title:        g.Title,
				CurrentValue: g.CurrentValue,
				TargetValue:  g.TargetValue,
				Percent:      stats.GoalPercent(g.CurrentValue, g.TargetValue),
				IsCouple:     true,
			})
		}
	}

	return dashboard, nil
}
