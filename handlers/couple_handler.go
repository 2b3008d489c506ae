package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"oritualAPI/internal/apperr"
	"oritualAPI/internal/couple"
	"oritualAPI/internal/goal"
	"oritualAPI/internal/habit"
	"oritualAPI/middleware"
	"oritualAPI/services"
)

type CoupleHandler struct {
	coupleService *services.CoupleService
}

func NewCoupleHandler(coupleService *services.CoupleService) *CoupleHandler {
	return &CoupleHandler{
		coupleService: coupleService,
	}
}

type coupleView struct {
	Couple        *couple.Couple        `json:"couple"`
	Partner       *couple.Partner       `json:"partner,omitempty"`
	PendingInvite *couple.PartnerInvite `json:"pendingInvite,omitempty"`
}

// GetCouple returns the pairing state: the couple and partner when
// paired, otherwise any still-valid invite the user has minted.
func (h *CoupleHandler) GetCouple(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view := coupleView{}

	c, err := h.coupleService.GetCouple(ctx, userID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		respondWithAppError(w, err)
		return
	}
	if err == nil {
		view.Couple = c
		partner, err := h.coupleService.GetPartner(ctx, userID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			respondWithAppError(w, err)
			return
		}
		view.Partner = partner
	} else {
		invite, err := h.coupleService.GetPendingInvite(ctx, userID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			respondWithAppError(w, err)
			return
		}
		view.PendingInvite = invite
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *CoupleHandler) GenerateInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	invite, err := h.coupleService.GenerateInvite(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, invite)
}

func (h *CoupleHandler) RedeemInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.coupleService.RedeemInvite(ctx, userID, req.Code)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CoupleHandler) GetGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	goals, err := h.coupleService.GetGoals(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, goals)
}

func (h *CoupleHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Title       string `json:"title"`
		TargetValue int    `json:"targetValue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.coupleService.CreateGoal(ctx, userID, &goal.CreateGoalRequest{
		Title:       req.Title,
		TargetValue: req.TargetValue,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CoupleHandler) UpdateGoalProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		NewValue int     `json:"newValue"`
		Note     *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	goalID := mux.Vars(r)["id"]
	err := h.coupleService.UpdateGoalProgress(ctx, userID, &goal.UpdateProgressRequest{
		GoalID:   goalID,
		NewValue: req.NewValue,
		Note:     req.Note,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CoupleHandler) GetGoalProgressLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	goalID := mux.Vars(r)["id"]
	entries, err := h.coupleService.GetGoalProgressLog(ctx, userID, goalID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *CoupleHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	goalID := mux.Vars(r)["id"]
	if err := h.coupleService.DeleteGoal(ctx, userID, goalID); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CoupleHandler) GetHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	habits, err := h.coupleService.GetHabits(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, habits)
}

func (h *CoupleHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Title          string   `json:"title"`
		FrequencyType  string   `json:"frequencyType"`
		FrequencyValue int      `json:"frequencyValue"`
		TargetDays     []string `json:"targetDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.coupleService.CreateHabit(ctx, userID, &habit.CreateHabitRequest{
		Title:          req.Title,
		FrequencyType:  req.FrequencyType,
		FrequencyValue: req.FrequencyValue,
		TargetDays:     req.TargetDays,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CoupleHandler) SetHabitActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	habitID := mux.Vars(r)["id"]
	if err := h.coupleService.SetHabitActive(ctx, userID, habitID, req.Active); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CoupleHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	habitID := mux.Vars(r)["id"]
	if err := h.coupleService.DeleteHabit(ctx, userID, habitID); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CoupleHandler) ToggleHabitCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	habitID := mux.Vars(r)["id"]
	if err := h.coupleService.ToggleHabitCompletion(ctx, userID, habitID, req.Completed); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
