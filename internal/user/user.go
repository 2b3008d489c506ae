package user

import "time"

type User struct {
	ID                  string     `json:"id"`
	GoogleID            string     `json:"googleId"`
	Email               string     `json:"email"`
	Name                *string    `json:"name,omitempty"`
	Timezone            string     `json:"timezone"`
	Affirmation         *string    `json:"affirmation,omitempty"`
	OnboardingCompleted bool       `json:"onboardingCompleted"`
	IsPremium           bool       `json:"isPremium"`
	PremiumPurchasedAt  *time.Time `json:"premiumPurchasedAt,omitempty"`
	StripeCustomerID    *string    `json:"stripeCustomerId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	DeletedAt           *time.Time `json:"deletedAt,omitempty"`
}

// UpsertRequest carries the identity claims obtained from the OAuth
// provider after a successful login.
type UpsertRequest struct {
	GoogleID string
	Email    string
	Name     *string
}

type UpdateSettingsRequest struct {
	Name     *string `json:"name"`
	Timezone *string `json:"timezone"`
}
