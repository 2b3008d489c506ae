package stats

import (
	"math"

	"oritualAPI/internal/dates"
)

// HabitInfo is the frequency metadata the adherence computation needs.
// Personal and couple habits both reduce to this shape, so the math below
// runs once regardless of habit kind.
type HabitInfo struct {
	ID             string
	FrequencyType  string // "weekly" | "monthly"
	FrequencyValue int
	TargetDays     []string
}

// CompletionRecord is one (habit, date) completion row inside the window
// being aggregated.
type CompletionRecord struct {
	HabitID   string
	Date      string
	Completed bool
}

type Adherence struct {
	Expected  int `json:"expected"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// WeeklyAdherence aggregates expected-so-far vs completed across weekly
// habits for the current week. A target day only counts toward the
// denominator once it has occurred: a habit targeting Friday is not yet
// expected on Tuesday. todayIndex is Monday-first (mon=0 .. sun=6).
func WeeklyAdherence(habits []HabitInfo, completions []CompletionRecord, todayIndex int) Adherence {
	var a Adherence
	completed := completedDatesByHabit(completions)

	for _, h := range habits {
		if h.FrequencyType != FrequencyWeekly {
			continue
		}
		for _, day := range h.TargetDays {
			idx, ok := dates.WeekdayIndex(day)
			if !ok {
				continue
			}
			if idx <= todayIndex {
				a.Expected++
			}
		}
		a.Completed += len(completed[h.ID])
	}

	a.Percent = ratioPercent(a.Completed, a.Expected)
	return a
}

// MonthlyAdherence aggregates configured target counts vs completions in
// the month window across monthly habits. The percentage is capped at 100
// so overshooting a target does not inflate the rollup.
func MonthlyAdherence(habits []HabitInfo, completions []CompletionRecord) Adherence {
	var a Adherence
	completed := completedDatesByHabit(completions)

	for _, h := range habits {
		if h.FrequencyType != FrequencyMonthly {
			continue
		}
		a.Expected += h.FrequencyValue
		a.Completed += len(completed[h.ID])
	}

	a.Percent = ratioPercent(a.Completed, a.Expected)
	if a.Percent > 100 {
		a.Percent = 100
	}
	return a
}

// GoalPercent is min(100, round(current/target*100)); a zero target is 0.
func GoalPercent(current, target int) int {
	if target <= 0 {
		return 0
	}
	p := int(math.Round(float64(current) / float64(target) * 100))
	if p > 100 {
		p = 100
	}
	return p
}

func ratioPercent(completed, expected int) int {
	if expected == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(expected) * 100))
}

// completedDatesByHabit collapses the window's rows to distinct completed
// dates per habit, so the same date upserted twice never counts twice.
func completedDatesByHabit(completions []CompletionRecord) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for _, c := range completions {
		if !c.Completed {
			continue
		}
		if out[c.HabitID] == nil {
			out[c.HabitID] = make(map[string]struct{})
		}
		out[c.HabitID][c.Date] = struct{}{}
	}
	return out
}

const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)
