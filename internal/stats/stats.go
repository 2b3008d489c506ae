package stats

type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

type DayStat struct {
	Date       string    `json:"date"`
	HasContent bool      `json:"hasContent"`
	TaskStats  TaskStats `json:"taskStats"`
}

type GoalProgress struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CurrentValue int    `json:"currentValue"`
	TargetValue  int    `json:"targetValue"`
	Percent      int    `json:"percent"`
	IsCouple     bool   `json:"isCouple"`
}

type Dashboard struct {
	RecentDays  []DayStat      `json:"recentDays"`
	WeekTasks   TaskStats      `json:"weekTasks"`
	MonthTasks  TaskStats      `json:"monthTasks"`
	WeekHabits  Adherence      `json:"weekHabits"`
	MonthHabits Adherence      `json:"monthHabits"`
	Goals       []GoalProgress `json:"goals"`
	IsPremium   bool           `json:"isPremium"`
	HasCouple   bool           `json:"hasCouple"`
}
