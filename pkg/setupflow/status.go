// Package setupflow implements the helper-side payment account readiness
// workflow: querying account status, walking a helper through Stripe
// Express onboarding in an embedded surface, and gating tip-bearing
// actions on a ready account.
//
// Status answers are fail-closed throughout: any failure to determine
// readiness reads as "cannot receive payments". The worst outcome of a
// false negative is a redundant setup prompt; a false positive would let
// a tip land on an account that cannot accept it.
package setupflow

// AccountStatus is the readiness snapshot served by the backend's
// account-status endpoint. The backend's interpretation of Stripe is
// authoritative; URL heuristics during onboarding are only hints.
type AccountStatus struct {
	HasAccount         bool    `json:"has_account"`
	CanReceivePayments bool    `json:"can_receive_payments"`
	AccountID          *string `json:"account_id,omitempty"`
	Message            string  `json:"message"`
}

// NeedsOnboarding reports whether an existing account still has
// verification work outstanding. It is always false when no account
// exists yet; that state is visible through HasAccount directly.
func (s AccountStatus) NeedsOnboarding() bool {
	return s.HasAccount && !s.CanReceivePayments
}

// Balance is the helper's Stripe balance in decimal dollars. It is
// informational only and never used for gating decisions.
type Balance struct {
	Available float64 `json:"available"`
	Pending   float64 `json:"pending"`
	Currency  string  `json:"currency"`
}
