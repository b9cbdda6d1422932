package setupflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateZeroAmountProceedsWithoutAnyCalls(t *testing.T) {
	checker := &fakeStatusChecker{status: noAccountStatus()}
	requester := &fakeSetupRequester{}
	gate := NewGate(checker, requester)

	ran := false
	decision, err := gate.Evaluate(context.Background(), 0, func() { ran = true })
	require.NoError(t, err)
	require.Equal(t, DecisionProceed, decision)

	// Volunteer favors are exempt: no status lookup, no setup flow, and
	// the continuation is the caller's to run.
	require.Equal(t, 0, checker.calls)
	require.Equal(t, 0, requester.calls)
	require.False(t, ran)
}

func TestEvaluateNegativeAmountIsAnError(t *testing.T) {
	checker := &fakeStatusChecker{status: readyStatus()}
	requester := &fakeSetupRequester{}
	gate := NewGate(checker, requester)

	decision, err := gate.Evaluate(context.Background(), -500, func() {})
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Equal(t, DecisionInvalid, decision)
	require.Equal(t, 0, checker.calls)
	require.Equal(t, 0, requester.calls)
}

func TestEvaluateReadyAccountProceedsWithoutInvokingContinuation(t *testing.T) {
	checker := &fakeStatusChecker{status: readyStatus()}
	requester := &fakeSetupRequester{}
	gate := NewGate(checker, requester)

	ran := false
	decision, err := gate.Evaluate(context.Background(), 1500, func() { ran = true })
	require.NoError(t, err)
	require.Equal(t, DecisionProceed, decision)
	require.Equal(t, 1, checker.calls)
	require.Equal(t, 0, requester.calls)
	require.False(t, ran)
}

func TestEvaluateNotReadyDefersAndStartsSetupOnce(t *testing.T) {
	checker := &fakeStatusChecker{status: processingStatus()}
	requester := &fakeSetupRequester{}
	gate := NewGate(checker, requester)

	ran := false
	continuation := func() { ran = true }
	decision, err := gate.Evaluate(context.Background(), 1500, continuation)
	require.NoError(t, err)
	require.Equal(t, DecisionDeferred, decision)
	require.Equal(t, 1, requester.calls)
	require.False(t, ran)

	// The continuation handed over is the caller's, to run only after
	// the coordinator verifies readiness.
	require.Len(t, requester.continuations, 1)
	requester.continuations[0]()
	require.True(t, ran)
}

func TestEvaluateDeferredSurfacesSetupError(t *testing.T) {
	checker := &fakeStatusChecker{status: noAccountStatus()}
	requester := &fakeSetupRequester{err: ErrSessionActive}
	gate := NewGate(checker, requester)

	decision, err := gate.Evaluate(context.Background(), 2500, func() {})
	require.ErrorIs(t, err, ErrSessionActive)
	require.Equal(t, DecisionDeferred, decision)
}
