package couple

import "time"

type Couple struct {
	ID        string     `json:"id"`
	UserID1   string     `json:"userId1"`
	UserID2   string     `json:"userId2"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// PartnerID returns the other member of the couple.
func (c *Couple) PartnerID(userID string) string {
	if c.UserID1 == userID {
		return c.UserID2
	}
	return c.UserID1
}

type PartnerInvite struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	FromUserID string    `json:"fromUserId"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Used       bool      `json:"used"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Partner is the subset of the partner's profile shown to the other member.
type Partner struct {
	Name  *string `json:"name,omitempty"`
	Email string  `json:"email"`
}
