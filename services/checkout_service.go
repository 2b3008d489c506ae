package services

import (
	"context"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"oritualAPI/internal/apperr"
)

// CheckoutService creates Stripe Checkout sessions for the one-time
// premium purchase. The onboarding flow may offer a discounted price
// via a separate price ID.
type CheckoutService struct {
	users *UserService
}

func NewCheckoutService(users *UserService) *CheckoutService {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	return &CheckoutService{users: users}
}

// CreateSession builds a payment-mode checkout session for the user and
// returns the hosted checkout URL. origin is the scheme+host the user
// arrived on; success and cancel URLs are built relative to it. When
// promo is "welcome" and an onboarding price is configured, the
// discounted price is used instead of the standard one.
func (s *CheckoutService) CreateSession(ctx context.Context, userID, origin, promo string) (string, error) {
	if stripe.Key == "" {
		return "", fmt.Errorf("%w: STRIPE_SECRET_KEY is not set", apperr.ErrNotConfigured)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.IsPremium {
		return "", fmt.Errorf("%w: already premium", apperr.ErrConflict)
	}

	priceID := os.Getenv("STRIPE_PRICE_ID")
	if promo == "welcome" {
		if onboarding := os.Getenv("STRIPE_ONBOARDING_PRICE_ID"); onboarding != "" {
			priceID = onboarding
		}
	}
	if priceID == "" {
		return "", fmt.Errorf("%w: STRIPE_PRICE_ID is not set", apperr.ErrNotConfigured)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(u.Email),
		SuccessURL:    stripe.String(origin + "/app/upgrade/success"),
		CancelURL:     stripe.String(origin + "/app/upgrade?cancelled=true"),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrProcessor, err)
	}
	return sess.URL, nil
}
