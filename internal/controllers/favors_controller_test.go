package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/favorapp/payments-service/internal/middleware"
	"github.com/favorapp/payments-service/internal/models"
	"github.com/favorapp/payments-service/internal/routes"
	"github.com/favorapp/payments-service/internal/services"
	"github.com/favorapp/payments-service/internal/utils"
)

type stubFavorRepo struct {
	favors map[uuid.UUID]*models.Favor
}

func (r *stubFavorRepo) Create(ctx context.Context, f *models.Favor) error {
	r.favors[f.ID] = f
	return nil
}

func (r *stubFavorRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Favor, error) {
	return r.favors[id], nil
}

func (r *stubFavorRepo) ListOpen(ctx context.Context, limit int) ([]*models.Favor, error) {
	var out []*models.Favor
	for _, f := range r.favors {
		if f.Status == models.FavorStatusOpen {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *stubFavorRepo) Claim(ctx context.Context, favorID, helperID uuid.UUID) (bool, error) {
	f := r.favors[favorID]
	if f == nil || f.Status != models.FavorStatusOpen {
		return false, nil
	}
	f.HelperID = &helperID
	f.Status = models.FavorStatusClaimed
	return true, nil
}

func (r *stubFavorRepo) SetStatus(ctx context.Context, favorID uuid.UUID, status models.FavorStatusType) error {
	r.favors[favorID].Status = status
	return nil
}

type stubReadiness struct{ ready bool }

func (s *stubReadiness) CanReceivePayments(ctx context.Context, helperID uuid.UUID) (bool, string, error) {
	return s.ready, "", nil
}

type stubPayouts struct{}

func (s *stubPayouts) InitiateForFavor(ctx context.Context, favor *models.Favor) error { return nil }

func newApplyRouter(repo *stubFavorRepo, ready bool) *mux.Router {
	svc := services.NewFavorService(repo, &stubReadiness{ready: ready}, &stubPayouts{})
	ctrl := NewFavorsController(svc)
	router := mux.NewRouter()
	router.HandleFunc(routes.FavorApply, ctrl.ApplyHandler).Methods(http.MethodPost)
	return router
}

func applyRequest(favorID uuid.UUID, helperID string) *http.Request {
	path := strings.Replace(routes.FavorApply, "{id}", favorID.String(), 1)
	req := httptest.NewRequest(http.MethodPost, path, nil)
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, helperID)
	return req.WithContext(ctx)
}

func TestApplyHandlerBlocksWhenAccountNotReady(t *testing.T) {
	favor := &models.Favor{ID: uuid.New(), RequesterID: uuid.New(), Title: "Tipped favor", TipCents: 1000, Status: models.FavorStatusOpen}
	repo := &stubFavorRepo{favors: map[uuid.UUID]*models.Favor{favor.ID: favor}}
	router := newApplyRouter(repo, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, applyRequest(favor.ID, uuid.NewString()))

	require.Equal(t, http.StatusConflict, rr.Code)

	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, utils.ErrCodePaymentAccountNotReady, body.Code)
	require.Equal(t, models.FavorStatusOpen, favor.Status)
}

func TestApplyHandlerAcceptsVolunteerFavorWithoutReadiness(t *testing.T) {
	favor := &models.Favor{ID: uuid.New(), RequesterID: uuid.New(), Title: "Volunteer favor", TipCents: 0, Status: models.FavorStatusOpen}
	repo := &stubFavorRepo{favors: map[uuid.UUID]*models.Favor{favor.ID: favor}}
	router := newApplyRouter(repo, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, applyRequest(favor.ID, uuid.NewString()))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, models.FavorStatusClaimed, favor.Status)
}

func TestApplyHandlerRejectsBadFavorID(t *testing.T) {
	repo := &stubFavorRepo{favors: map[uuid.UUID]*models.Favor{}}
	router := newApplyRouter(repo, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/favors/not-a-uuid/apply", nil)
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, uuid.NewString())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req.WithContext(ctx))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestApplyHandlerRequiresUserInContext(t *testing.T) {
	favor := &models.Favor{ID: uuid.New(), Title: "x", TipCents: 0, Status: models.FavorStatusOpen}
	repo := &stubFavorRepo{favors: map[uuid.UUID]*models.Favor{favor.ID: favor}}
	router := newApplyRouter(repo, true)

	path := strings.Replace(routes.FavorApply, "{id}", favor.ID.String(), 1)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookCheckHandlerRoundTrip(t *testing.T) {
	checkService := services.NewStripeWebhookCheckService()
	checkService.HandlePaymentIntentCreated("evt_123", nil)

	ctrl := &StripeWebhookController{stripeWebhookCheckService: checkService}

	rr := httptest.NewRecorder()
	ctrl.WebhookCheckHandler(rr, httptest.NewRequest(http.MethodGet, routes.PaymentsStripeWebhookCheck+"?id=evt_123", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	// Consumed: a second lookup must miss.
	rr = httptest.NewRecorder()
	ctrl.WebhookCheckHandler(rr, httptest.NewRequest(http.MethodGet, routes.PaymentsStripeWebhookCheck+"?id=evt_123", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
