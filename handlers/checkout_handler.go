package handlers

import (
	"context"
	"net/http"
	"time"

	"oritualAPI/middleware"
	"oritualAPI/services"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// CreateCheckout creates a hosted checkout session and sends the browser
// there. `promo=welcome` selects the onboarding-discount price.
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	promo := r.URL.Query().Get("promo")
	url, err := h.checkoutService.CreateSession(ctx, userID, requestOrigin(r), promo)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}
