package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/favorapp/payments-service/internal/models"
)

type fakeHelperRepo struct {
	helpers map[uuid.UUID]*models.Helper
	updates int
}

func newFakeHelperRepo(helpers ...*models.Helper) *fakeHelperRepo {
	r := &fakeHelperRepo{helpers: map[uuid.UUID]*models.Helper{}}
	for _, h := range helpers {
		r.helpers[h.ID] = h
	}
	return r
}

func (r *fakeHelperRepo) Create(_ context.Context, h *models.Helper) error {
	r.helpers[h.ID] = h
	return nil
}

func (r *fakeHelperRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Helper, error) {
	h, ok := r.helpers[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHelperRepo) GetByEmail(_ context.Context, email string) (*models.Helper, error) {
	for _, h := range r.helpers {
		if h.Email == email {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeHelperRepo) GetByStripeConnectAccountID(_ context.Context, acct string) (*models.Helper, error) {
	for _, h := range r.helpers {
		if h.StripeConnectAccountID != nil && *h.StripeConnectAccountID == acct {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeHelperRepo) Update(_ context.Context, h *models.Helper) error {
	r.helpers[h.ID] = h
	r.updates++
	return nil
}

func (r *fakeHelperRepo) UpdateIfVersion(_ context.Context, h *models.Helper, _ int64) (pgconn.CommandTag, error) {
	r.helpers[h.ID] = h
	r.updates++
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *fakeHelperRepo) UpdateWithRetry(_ context.Context, id uuid.UUID, mutate func(*models.Helper) error) error {
	h, ok := r.helpers[id]
	if !ok {
		return errors.New("helper not found")
	}
	if err := mutate(h); err != nil {
		return err
	}
	r.updates++
	return nil
}

type fakeAccountFetcher struct {
	acct  *stripe.Account
	err   error
	calls int
}

func (f *fakeAccountFetcher) Fetch(string) (*stripe.Account, error) {
	f.calls++
	return f.acct, f.err
}

func onboardingHelper(acctID *string) *models.Helper {
	return &models.Helper{
		ID:                     uuid.New(),
		Email:                  "helper@example.com",
		AccountStatus:          models.AccountStatusIncomplete,
		SetupProgress:          models.SetupProgressPaymentAccountSetup,
		StripeConnectAccountID: acctID,
	}
}

func newStatusService(repo *fakeHelperRepo, fetcher *fakeAccountFetcher) *HelperStripeService {
	return &HelperStripeService{repo: repo, accounts: fetcher}
}

func TestGetAccountStatusNoAccountYet(t *testing.T) {
	helper := onboardingHelper(nil)
	repo := newFakeHelperRepo(helper)
	fetcher := &fakeAccountFetcher{}
	svc := newStatusService(repo, fetcher)

	status, err := svc.GetAccountStatus(context.Background(), helper.ID)
	require.NoError(t, err)
	require.False(t, status.HasAccount)
	require.False(t, status.CanReceivePayments)
	require.Zero(t, fetcher.calls)
}

func TestGetAccountStatusFailsClosedWhenStripeUnavailable(t *testing.T) {
	acctID := "acct_down"
	helper := onboardingHelper(&acctID)
	repo := newFakeHelperRepo(helper)
	fetcher := &fakeAccountFetcher{err: errors.New("stripe: connection reset")}
	svc := newStatusService(repo, fetcher)

	status, err := svc.GetAccountStatus(context.Background(), helper.ID)
	require.NoError(t, err)
	require.True(t, status.HasAccount)
	require.False(t, status.CanReceivePayments)
	require.NotEmpty(t, status.Message)
	require.Zero(t, repo.updates)

	ready, _, err := svc.CanReceivePayments(context.Background(), helper.ID)
	require.NoError(t, err)
	require.False(t, ready)
}

func TestGetAccountStatusReadyAdvancesSetupProgress(t *testing.T) {
	acctID := "acct_ready"
	helper := onboardingHelper(&acctID)
	repo := newFakeHelperRepo(helper)
	fetcher := &fakeAccountFetcher{acct: &stripe.Account{
		ID:               acctID,
		DetailsSubmitted: true,
		PayoutsEnabled:   true,
	}}
	svc := newStatusService(repo, fetcher)

	status, err := svc.GetAccountStatus(context.Background(), helper.ID)
	require.NoError(t, err)
	require.True(t, status.HasAccount)
	require.True(t, status.CanReceivePayments)
	require.NotNil(t, status.AccountID)
	require.Equal(t, acctID, *status.AccountID)

	stored := repo.helpers[helper.ID]
	require.Equal(t, models.SetupProgressDone, stored.SetupProgress)
	require.Equal(t, models.AccountStatusActive, stored.AccountStatus)
	require.Equal(t, 1, repo.updates)

	// A second poll is a read only; no redundant write.
	_, err = svc.GetAccountStatus(context.Background(), helper.ID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.updates)
}

func TestGetAccountStatusStillProcessing(t *testing.T) {
	acctID := "acct_pending"
	helper := onboardingHelper(&acctID)
	repo := newFakeHelperRepo(helper)
	fetcher := &fakeAccountFetcher{acct: &stripe.Account{
		ID:               acctID,
		DetailsSubmitted: true,
		PayoutsEnabled:   false,
	}}
	svc := newStatusService(repo, fetcher)

	status, err := svc.GetAccountStatus(context.Background(), helper.ID)
	require.NoError(t, err)
	require.True(t, status.HasAccount)
	require.False(t, status.CanReceivePayments)
	require.NotEmpty(t, status.Message)
	require.Zero(t, repo.updates)
	require.Equal(t, models.SetupProgressPaymentAccountSetup, repo.helpers[helper.ID].SetupProgress)
}
