package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"oritualAPI/internal/apperr"
	"oritualAPI/middleware"
	"oritualAPI/services"
)

type WebhookHandler struct {
	userService *services.UserService
}

func NewWebhookHandler(userService *services.UserService) *WebhookHandler {
	return &WebhookHandler{
		userService: userService,
	}
}

// HandleStripeWebhook processes events sent by Stripe
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading request body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	// 1. Verify the signature
	endpointSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if endpointSecret == "" {
		log.Println("STRIPE_WEBHOOK_SECRET is not set")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), endpointSecret)
	if err != nil {
		log.Printf("Error verifying webhook signature: %v", err)
		middleware.CountWebhookEvent("unknown", "bad_signature")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// 2. Handle specific event types
	ctx := r.Context()

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			middleware.CountWebhookEvent(string(event.Type), "bad_payload")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handleCheckoutSessionCompleted(ctx, &session); err != nil {
			log.Printf("Error handling checkout.session.completed: %v", err)
			middleware.CountWebhookEvent(string(event.Type), "error")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		middleware.CountWebhookEvent(string(event.Type), "ok")

	default:
		// Unhandled event types are acknowledged so Stripe stops retrying.
		middleware.CountWebhookEvent(string(event.Type), "ignored")
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckoutSessionCompleted flips the paying user to premium. The
// activation is idempotent, so Stripe redelivering the event is harmless.
func (h *WebhookHandler) handleCheckoutSessionCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	userID := session.Metadata["user_id"]
	if userID == "" {
		return fmt.Errorf("checkout session %s carries no user_id metadata", session.ID)
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	if err := h.userService.ActivatePremium(ctx, userID, customerID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// The user vanished between checkout and webhook delivery.
			// Retrying will not help, so acknowledge and log.
			log.Printf("Checkout completed for unknown user %s", userID)
			return nil
		}
		return err
	}
	return nil
}
