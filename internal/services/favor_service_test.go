package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/favorapp/payments-service/internal/dtos"
	"github.com/favorapp/payments-service/internal/models"
	"github.com/favorapp/payments-service/internal/utils"
)

type fakeFavorRepo struct {
	favors map[uuid.UUID]*models.Favor
}

func newFakeFavorRepo() *fakeFavorRepo {
	return &fakeFavorRepo{favors: make(map[uuid.UUID]*models.Favor)}
}

func (r *fakeFavorRepo) Create(ctx context.Context, f *models.Favor) error {
	cp := *f
	r.favors[f.ID] = &cp
	return nil
}

func (r *fakeFavorRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Favor, error) {
	f, ok := r.favors[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFavorRepo) ListOpen(ctx context.Context, limit int) ([]*models.Favor, error) {
	var out []*models.Favor
	for _, f := range r.favors {
		if f.Status == models.FavorStatusOpen && len(out) < limit {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFavorRepo) Claim(ctx context.Context, favorID, helperID uuid.UUID) (bool, error) {
	f, ok := r.favors[favorID]
	if !ok || f.Status != models.FavorStatusOpen {
		return false, nil
	}
	f.HelperID = &helperID
	f.Status = models.FavorStatusClaimed
	return true, nil
}

func (r *fakeFavorRepo) SetStatus(ctx context.Context, favorID uuid.UUID, status models.FavorStatusType) error {
	f, ok := r.favors[favorID]
	if !ok {
		return errors.New("favor not found")
	}
	f.Status = status
	return nil
}

type fakeReadinessChecker struct {
	ready bool
	err   error
	calls int
}

func (c *fakeReadinessChecker) CanReceivePayments(ctx context.Context, helperID uuid.UUID) (bool, string, error) {
	c.calls++
	return c.ready, "status message", c.err
}

type fakePayoutInitiator struct {
	err    error
	favors []uuid.UUID
}

func (p *fakePayoutInitiator) InitiateForFavor(ctx context.Context, favor *models.Favor) error {
	p.favors = append(p.favors, favor.ID)
	return p.err
}

func seedFavor(repo *fakeFavorRepo, tipCents int64, status models.FavorStatusType) *models.Favor {
	f := &models.Favor{
		ID:          uuid.New(),
		RequesterID: uuid.New(),
		Title:       "Walk my dog",
		TipCents:    tipCents,
		Status:      status,
	}
	repo.favors[f.ID] = f
	return f
}

func TestCreateValidatesPayload(t *testing.T) {
	svc := NewFavorService(newFakeFavorRepo(), &fakeReadinessChecker{}, &fakePayoutInitiator{})

	_, err := svc.Create(context.Background(), uuid.New(), &dtos.CreateFavorRequest{
		Title: "ab", // below the 3-char minimum
		Tip:   5,
	})
	require.Error(t, err)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestCreateConvertsTipToCents(t *testing.T) {
	repo := newFakeFavorRepo()
	svc := NewFavorService(repo, &fakeReadinessChecker{}, &fakePayoutInitiator{})

	favor, err := svc.Create(context.Background(), uuid.New(), &dtos.CreateFavorRequest{
		Title: "Pick up groceries",
		Tip:   12.34,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1234, favor.TipCents)
	require.Equal(t, models.FavorStatusOpen, favor.Status)
}

func TestApplyVolunteerFavorSkipsReadinessCheck(t *testing.T) {
	repo := newFakeFavorRepo()
	checker := &fakeReadinessChecker{ready: false}
	svc := NewFavorService(repo, checker, &fakePayoutInitiator{})

	favor := seedFavor(repo, 0, models.FavorStatusOpen)
	helperID := uuid.New()

	require.NoError(t, svc.Apply(context.Background(), favor.ID, helperID))
	require.Equal(t, 0, checker.calls)

	stored := repo.favors[favor.ID]
	require.Equal(t, models.FavorStatusClaimed, stored.Status)
	require.Equal(t, helperID, *stored.HelperID)
}

func TestApplyTippedFavorRequiresReadyAccount(t *testing.T) {
	repo := newFakeFavorRepo()
	checker := &fakeReadinessChecker{ready: false}
	svc := NewFavorService(repo, checker, &fakePayoutInitiator{})

	favor := seedFavor(repo, 1500, models.FavorStatusOpen)

	err := svc.Apply(context.Background(), favor.ID, uuid.New())
	require.ErrorIs(t, err, utils.ErrPaymentAccountNotReady)
	require.Equal(t, 1, checker.calls)
	require.Equal(t, models.FavorStatusOpen, repo.favors[favor.ID].Status)
}

func TestApplyTippedFavorProceedsWhenReady(t *testing.T) {
	repo := newFakeFavorRepo()
	checker := &fakeReadinessChecker{ready: true}
	svc := NewFavorService(repo, checker, &fakePayoutInitiator{})

	favor := seedFavor(repo, 1500, models.FavorStatusOpen)
	helperID := uuid.New()

	require.NoError(t, svc.Apply(context.Background(), favor.ID, helperID))
	require.Equal(t, models.FavorStatusClaimed, repo.favors[favor.ID].Status)
}

func TestApplyFailsClosedOnReadinessError(t *testing.T) {
	repo := newFakeFavorRepo()
	checker := &fakeReadinessChecker{ready: false, err: errors.New("db down")}
	svc := NewFavorService(repo, checker, &fakePayoutInitiator{})

	favor := seedFavor(repo, 1500, models.FavorStatusOpen)

	err := svc.Apply(context.Background(), favor.ID, uuid.New())
	require.Error(t, err)
	require.Equal(t, models.FavorStatusOpen, repo.favors[favor.ID].Status)
}

func TestApplyRejectsNonOpenFavor(t *testing.T) {
	repo := newFakeFavorRepo()
	svc := NewFavorService(repo, &fakeReadinessChecker{ready: true}, &fakePayoutInitiator{})

	favor := seedFavor(repo, 1500, models.FavorStatusClaimed)

	err := svc.Apply(context.Background(), favor.ID, uuid.New())
	require.ErrorIs(t, err, utils.ErrFavorNotOpen)
}

func TestApplyUnknownFavor(t *testing.T) {
	svc := NewFavorService(newFakeFavorRepo(), &fakeReadinessChecker{ready: true}, &fakePayoutInitiator{})

	err := svc.Apply(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, utils.ErrFavorNotFound)
}

func TestCompleteTippedFavorTriggersPayout(t *testing.T) {
	repo := newFakeFavorRepo()
	payouts := &fakePayoutInitiator{}
	svc := NewFavorService(repo, &fakeReadinessChecker{ready: true}, payouts)

	favor := seedFavor(repo, 2000, models.FavorStatusClaimed)
	helperID := uuid.New()
	repo.favors[favor.ID].HelperID = &helperID

	require.NoError(t, svc.Complete(context.Background(), favor.ID, helperID))
	require.Equal(t, []uuid.UUID{favor.ID}, payouts.favors)
	require.Equal(t, models.FavorStatusPaidOut, repo.favors[favor.ID].Status)
}

func TestCompleteVolunteerFavorSkipsPayout(t *testing.T) {
	repo := newFakeFavorRepo()
	payouts := &fakePayoutInitiator{}
	svc := NewFavorService(repo, &fakeReadinessChecker{}, payouts)

	favor := seedFavor(repo, 0, models.FavorStatusClaimed)
	helperID := uuid.New()
	repo.favors[favor.ID].HelperID = &helperID

	require.NoError(t, svc.Complete(context.Background(), favor.ID, helperID))
	require.Empty(t, payouts.favors)
	require.Equal(t, models.FavorStatusCompleted, repo.favors[favor.ID].Status)
}

func TestCompleteByWrongHelperIsForbidden(t *testing.T) {
	repo := newFakeFavorRepo()
	svc := NewFavorService(repo, &fakeReadinessChecker{}, &fakePayoutInitiator{})

	favor := seedFavor(repo, 2000, models.FavorStatusClaimed)
	assigned := uuid.New()
	repo.favors[favor.ID].HelperID = &assigned

	err := svc.Complete(context.Background(), favor.ID, uuid.New())
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusForbidden, appErr.StatusCode)
}

func TestCompleteSurvivesPayoutInitiationFailure(t *testing.T) {
	repo := newFakeFavorRepo()
	payouts := &fakePayoutInitiator{err: errors.New("stripe unavailable")}
	svc := NewFavorService(repo, &fakeReadinessChecker{}, payouts)

	favor := seedFavor(repo, 2000, models.FavorStatusClaimed)
	helperID := uuid.New()
	repo.favors[favor.ID].HelperID = &helperID

	// Completion stands even when the payout leg fails; the cron retry
	// loop owns recovery, so the favor stays COMPLETED, not PAID_OUT.
	require.NoError(t, svc.Complete(context.Background(), favor.ID, helperID))
	require.Equal(t, models.FavorStatusCompleted, repo.favors[favor.ID].Status)
}
