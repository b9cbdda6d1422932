package setupflow

import "context"

type fakeSessionSource struct {
	url   string
	err   error
	calls int
}

func (f *fakeSessionSource) CreateOnboardingSession(ctx context.Context) (string, error) {
	f.calls++
	return f.url, f.err
}

type fakeStatusChecker struct {
	status AccountStatus
	calls  int
}

func (f *fakeStatusChecker) GetAccountStatus(ctx context.Context) AccountStatus {
	f.calls++
	return f.status
}

type fakeSurface struct {
	presented []string
	closes    int
}

func (f *fakeSurface) Present(url string) {
	f.presented = append(f.presented, url)
}

func (f *fakeSurface) Close() {
	f.closes++
}

type fakePrompter struct {
	confirmClose      bool
	confirmCompletion bool
	notifications     []string
}

func (f *fakePrompter) ConfirmClose() bool      { return f.confirmClose }
func (f *fakePrompter) ConfirmCompletion() bool { return f.confirmCompletion }
func (f *fakePrompter) Notify(msg string) {
	f.notifications = append(f.notifications, msg)
}

type fakeSetupRequester struct {
	err           error
	calls         int
	continuations []func()
}

func (f *fakeSetupRequester) RequestSetup(ctx context.Context, continuation func()) error {
	f.calls++
	f.continuations = append(f.continuations, continuation)
	return f.err
}

func readyStatus() AccountStatus {
	id := "acct_123"
	return AccountStatus{
		HasAccount:         true,
		CanReceivePayments: true,
		AccountID:          &id,
		Message:            "ready",
	}
}

func processingStatus() AccountStatus {
	id := "acct_123"
	return AccountStatus{
		HasAccount:         true,
		CanReceivePayments: false,
		AccountID:          &id,
		Message:            "still processing",
	}
}

func noAccountStatus() AccountStatus {
	return AccountStatus{
		HasAccount:         false,
		CanReceivePayments: false,
		Message:            "no account",
	}
}
