package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountStatusType string

const (
	AccountStatusIncomplete AccountStatusType = "INCOMPLETE"
	AccountStatusActive     AccountStatusType = "ACTIVE"
)

type SetupProgressType string

const (
	SetupProgressAwaitingProfile     SetupProgressType = "AWAITING_PROFILE"
	SetupProgressPaymentAccountSetup SetupProgressType = "PAYMENT_ACCOUNT_SETUP"
	SetupProgressDone                SetupProgressType = "DONE"
)

// Helper is a user who fulfils favors and can receive tips through a
// connected Stripe Express account.
type Helper struct {
	Versioned

	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	ZipCode     string    `json:"zip_code"`

	AccountStatus          AccountStatusType `json:"account_status"`
	SetupProgress          SetupProgressType `json:"setup_progress"`
	StripeConnectAccountID *string           `json:"stripe_connect_account_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Helper) GetID() string {
	return h.ID.String()
}
