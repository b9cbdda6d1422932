package setupflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/favorapp/payments-service/internal/utils"
)

// ErrSessionActive is returned by RequestSetup when an onboarding session
// is already in progress. Callers should let the current session finish
// rather than tearing it down under the user.
var ErrSessionActive = errors.New("an onboarding session is already active")

// State is the Coordinator's position in the onboarding lifecycle.
type State int

const (
	// StateIdle — no session; RequestSetup is accepted.
	StateIdle State = iota
	// StateAwaitingSession — session URL being fetched from the backend.
	StateAwaitingSession
	// StatePresenting — the onboarding surface is showing Stripe's flow.
	StatePresenting
	// StateCompletionPending — a completion marker was seen; waiting on
	// the user to confirm they finished.
	StateCompletionPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingSession:
		return "AwaitingSession"
	case StatePresenting:
		return "Presenting"
	case StateCompletionPending:
		return "CompletionPending"
	default:
		return "Unknown"
	}
}

// SessionSource mints onboarding session URLs. Implemented by StatusClient.
type SessionSource interface {
	CreateOnboardingSession(ctx context.Context) (string, error)
}

// StatusChecker re-verifies readiness after onboarding. Implemented by
// StatusClient.
type StatusChecker interface {
	GetAccountStatus(ctx context.Context) AccountStatus
}

// Surface is the embedded browser (or equivalent) that shows Stripe's
// hosted onboarding.
type Surface interface {
	Present(url string)
	Close()
}

// Prompter owns the user-facing dialogs. Prompts are presentation only;
// they never change readiness, only which transition fires next.
type Prompter interface {
	// ConfirmClose asks whether to abandon an in-progress session.
	ConfirmClose() bool
	// ConfirmCompletion asks whether the user finished the Stripe flow.
	ConfirmCompletion() bool
	// Notify shows a one-way message.
	Notify(msg string)
}

// CompletionMarkers are URL substrings that suggest Stripe's flow reached
// its end. Deliberately broad ("return", "success"): a false trigger only
// costs a confirmation dialog plus a status re-check, while a missed one
// strands the user inside a finished flow. The authoritative answer is
// always the re-verification, never the URL.
var CompletionMarkers = []string{
	"stripe-redirect",
	"stripe-connect-return",
	"stripe-return",
	"favorhelper",
	"onboarding_complete",
	"account_complete",
	"return",
	"refresh",
	"success",
	"complete",
}

const (
	msgSessionStartFailed = "We couldn't start payment account setup. Please try again."
	msgStillProcessing    = "Your information was submitted and is still being processed. Check back in a moment."
	msgSetupNotEffective  = "Your payment account setup didn't complete. Please try again."
)

// Coordinator drives a helper through payment account onboarding. One
// session at a time; the pending continuation runs at most once, and only
// after readiness is re-verified against the backend.
//
// All entry points serialize on a mutex, so callback-driven transitions
// (navigation events, close taps) behave as if delivered on a single
// event loop.
type Coordinator struct {
	mu sync.Mutex

	sessions SessionSource
	status   StatusChecker
	surface  Surface
	prompter Prompter

	state               State
	pendingContinuation func()
}

func NewCoordinator(sessions SessionSource, status StatusChecker, surface Surface, prompter Prompter) *Coordinator {
	return &Coordinator{
		sessions: sessions,
		status:   status,
		surface:  surface,
		prompter: prompter,
		state:    StateIdle,
	}
}

// RequestSetup starts an onboarding session and stores continuation to run
// once the account verifies as ready. Returns ErrSessionActive if a
// session is already in progress.
func (c *Coordinator) RequestSetup(ctx context.Context, continuation func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrSessionActive
	}

	c.state = StateAwaitingSession
	c.pendingContinuation = continuation

	url, err := c.sessions.CreateOnboardingSession(ctx)
	if err != nil {
		// Failed before anything was shown: drop the continuation so a
		// later session cannot replay a stale action.
		c.pendingContinuation = nil
		c.state = StateIdle
		utils.Logger.WithError(err).Warn("Onboarding session creation failed")
		c.prompter.Notify(msgSessionStartFailed)
		return err
	}

	c.state = StatePresenting
	c.surface.Present(url)
	return nil
}

// HandleNavigation receives every URL the surface navigates to. A URL
// matching a completion marker moves the flow to CompletionPending and
// asks the user to confirm; confirmation closes the surface and hands the
// decision to the re-verified account status.
func (c *Coordinator) HandleNavigation(ctx context.Context, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePresenting {
		return
	}
	if !matchesCompletionMarker(url) {
		return
	}

	c.state = StateCompletionPending

	if !c.prompter.ConfirmCompletion() {
		// Not done yet; the surface stays up.
		c.state = StatePresenting
		return
	}

	c.surface.Close()

	// The URL got us here, but only the backend decides the outcome.
	status := c.status.GetAccountStatus(ctx)
	switch {
	case status.CanReceivePayments:
		cont := c.pendingContinuation
		c.pendingContinuation = nil
		c.state = StateIdle
		if cont != nil {
			cont()
		}

	case status.HasAccount:
		c.pendingContinuation = nil
		c.state = StateIdle
		c.prompter.Notify(msgStillProcessing)

	default:
		c.pendingContinuation = nil
		c.state = StateIdle
		c.prompter.Notify(msgSetupNotEffective)
	}
}

// HandleUserClose handles the user asking to dismiss the surface
// mid-flow. Confirming abandons the session and clears the continuation
// before this method returns; declining leaves everything untouched.
func (c *Coordinator) HandleUserClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePresenting {
		return
	}
	if !c.prompter.ConfirmClose() {
		return
	}

	c.surface.Close()
	c.pendingContinuation = nil
	c.state = StateIdle
}

// Recheck re-queries account status on demand, for "check again" UI after
// a still-processing outcome.
func (c *Coordinator) Recheck(ctx context.Context) AccountStatus {
	return c.status.GetAccountStatus(ctx)
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func matchesCompletionMarker(url string) bool {
	lowered := strings.ToLower(url)
	for _, marker := range CompletionMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
