package setupflow

import (
	"context"
	"errors"
)

// ErrInvalidAmount is returned by Gate.Evaluate for negative amounts.
var ErrInvalidAmount = errors.New("amount must be zero or positive")

// Decision is the outcome of a gate evaluation.
type Decision int

const (
	// DecisionProceed — the action may run now. The gate never runs the
	// continuation itself; the caller proceeds directly.
	DecisionProceed Decision = iota
	// DecisionDeferred — onboarding was started; the continuation runs
	// via the Coordinator once the account verifies as ready.
	DecisionDeferred
	// DecisionInvalid accompanies ErrInvalidAmount; the action must not
	// run and no onboarding was started.
	DecisionInvalid
)

func (d Decision) String() string {
	switch d {
	case DecisionProceed:
		return "Proceed"
	case DecisionDeferred:
		return "Deferred"
	case DecisionInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// SetupRequester starts the onboarding flow. Implemented by Coordinator.
type SetupRequester interface {
	RequestSetup(ctx context.Context, continuation func()) error
}

// Gate decides whether a tip-bearing action can proceed. Zero-amount
// (volunteer) actions always proceed without touching the network; tipped
// actions require a ready payment account or start onboarding.
type Gate struct {
	status      StatusChecker
	coordinator SetupRequester
}

func NewGate(status StatusChecker, coordinator SetupRequester) *Gate {
	return &Gate{
		status:      status,
		coordinator: coordinator,
	}
}

// Evaluate gates an action carrying amountCents. For DecisionDeferred the
// continuation is handed to the Coordinator and will run at most once,
// after re-verified readiness; for DecisionProceed the caller acts
// immediately and the continuation is never invoked by this package.
func (g *Gate) Evaluate(ctx context.Context, amountCents int64, continuation func()) (Decision, error) {
	if amountCents < 0 {
		return DecisionInvalid, ErrInvalidAmount
	}
	if amountCents == 0 {
		return DecisionProceed, nil
	}

	if g.status.GetAccountStatus(ctx).CanReceivePayments {
		return DecisionProceed, nil
	}

	if err := g.coordinator.RequestSetup(ctx, continuation); err != nil {
		return DecisionDeferred, err
	}
	return DecisionDeferred, nil
}
