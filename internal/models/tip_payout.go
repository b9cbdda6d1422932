package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatusType defines the possible states of a tip payout.
type PayoutStatusType string

const (
	PayoutStatusPending    PayoutStatusType = "PENDING"
	PayoutStatusProcessing PayoutStatusType = "PROCESSING"
	PayoutStatusPaid       PayoutStatusType = "PAID"
	PayoutStatusFailed     PayoutStatusType = "FAILED"
)

// TipPayout represents the escrow leg of a paid favor: the tip held on the
// platform account, transferred to the helper's connected account once the
// favor is completed.
type TipPayout struct {
	Versioned

	ID                uuid.UUID        `json:"id"`
	HelperID          uuid.UUID        `json:"helper_id"`
	FavorID           uuid.UUID        `json:"favor_id"`
	AmountCents       int64            `json:"amount_cents"`
	Status            PayoutStatusType `json:"status"`
	StripeTransferID  *string          `json:"stripe_transfer_id,omitempty"`
	LastFailureReason *string          `json:"last_failure_reason,omitempty"`
	RetryCount        int              `json:"retry_count"`
	LastAttemptAt     *time.Time       `json:"last_attempt_at,omitempty"`
	NextAttemptAt     *time.Time       `json:"next_attempt_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (p *TipPayout) GetID() string {
	return p.ID.String()
}
