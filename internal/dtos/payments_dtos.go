package dtos

// StripeConnectFlowURLResponse is returned by ConnectFlowURLHandler
type StripeConnectFlowURLResponse struct {
	OnboardingURL string `json:"onboarding_url"`
}

// AccountStatusResponse is returned by AccountStatusHandler. It is the
// authoritative answer to "can this helper currently receive payments":
// clients must treat it as ground truth over any redirect-URL heuristic.
type AccountStatusResponse struct {
	HasAccount         bool    `json:"has_account"`
	CanReceivePayments bool    `json:"can_receive_payments"`
	AccountID          *string `json:"account_id,omitempty"`
	Message            string  `json:"message"`
}

// BalanceResponse is returned by BalanceHandler. Amounts are decimal
// dollars; the response is informational, never used for gating.
type BalanceResponse struct {
	Available float64 `json:"available"`
	Pending   float64 `json:"pending"`
	Currency  string  `json:"currency"`
}

// WebhookCheckResponse is returned by WebhookCheckHandler
type WebhookCheckResponse struct {
	Message string `json:"message"`
}
