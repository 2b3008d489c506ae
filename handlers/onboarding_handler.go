package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"oritualAPI/internal/goal"
	"oritualAPI/internal/habit"
	"oritualAPI/middleware"
	"oritualAPI/services"
)

// OnboardingHandler drives the first-run flow: affirmation, starter
// habits and goals, then a completion step that may hand the client a
// discounted-checkout redirect.
type OnboardingHandler struct {
	userService  *services.UserService
	habitService *services.HabitService
	goalService  *services.GoalService
}

func NewOnboardingHandler(userService *services.UserService, habitService *services.HabitService, goalService *services.GoalService) *OnboardingHandler {
	return &OnboardingHandler{
		userService:  userService,
		habitService: habitService,
		goalService:  goalService,
	}
}

func (h *OnboardingHandler) SaveAffirmation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Affirmation string `json:"affirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.SaveAffirmation(ctx, userID, req.Affirmation); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreateHabits bulk-creates weekly habits from paired title/day-set
// rows. Rows with a blank title or no target days are skipped rather
// than rejected; the form always posts all rows.
func (h *OnboardingHandler) CreateHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Habits    []string   `json:"habits"`
		HabitDays [][]string `json:"habitDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created := 0
	for i, title := range req.Habits {
		if title == "" || i >= len(req.HabitDays) || len(req.HabitDays[i]) == 0 {
			continue
		}
		_, err := h.habitService.CreateHabit(ctx, userID, &habit.CreateHabitRequest{
			Title:         title,
			FrequencyType: habit.FrequencyWeekly,
			TargetDays:    req.HabitDays[i],
		})
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		created++
	}

	respondWithJSON(w, http.StatusCreated, map[string]int{"created": created})
}

// CreateGoals bulk-creates goals from paired title/target rows, skipping
// blank titles.
func (h *OnboardingHandler) CreateGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Goals   []string `json:"goals"`
		Targets []int    `json:"targets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created := 0
	for i, title := range req.Goals {
		if title == "" || i >= len(req.Targets) {
			continue
		}
		_, err := h.goalService.CreateGoal(ctx, userID, &goal.CreateGoalRequest{
			Title:       title,
			TargetValue: req.Targets[i],
		})
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		created++
	}

	respondWithJSON(w, http.StatusCreated, map[string]int{"created": created})
}

// Finish marks onboarding complete. When the user indicated a partner
// and interest in premium, the response points the client at the
// discounted checkout.
func (h *OnboardingHandler) Finish(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		HasPartner   bool `json:"hasPartner"`
		WantsPremium bool `json:"wantsPremium"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.CompleteOnboarding(ctx, userID); err != nil {
		respondWithAppError(w, err)
		return
	}

	resp := map[string]interface{}{"success": true}
	if req.HasPartner && req.WantsPremium {
		resp["redirect"] = "/app/upgrade?promo=welcome"
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *OnboardingHandler) Skip(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.userService.CompleteOnboarding(ctx, userID); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
