package models

import (
	"time"

	"github.com/google/uuid"
)

type FavorStatusType string

const (
	FavorStatusOpen      FavorStatusType = "OPEN"
	FavorStatusClaimed   FavorStatusType = "CLAIMED"
	FavorStatusCompleted FavorStatusType = "COMPLETED"
	FavorStatusPaidOut   FavorStatusType = "PAID_OUT"
)

// Favor is a requested task in the marketplace. TipCents == 0 means a
// volunteer favor; anything above zero is paid out to the helper through
// the escrow flow once the favor is completed.
type Favor struct {
	ID          uuid.UUID       `json:"id"`
	RequesterID uuid.UUID       `json:"requester_id"`
	HelperID    *uuid.UUID      `json:"helper_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TipCents    int64           `json:"tip_cents"`
	Status      FavorStatusType `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (f *Favor) IsVolunteer() bool {
	return f.TipCents == 0
}
