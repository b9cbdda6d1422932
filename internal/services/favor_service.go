package services

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/favorapp/payments-service/internal/dtos"
	"github.com/favorapp/payments-service/internal/models"
	"github.com/favorapp/payments-service/internal/repositories"
	"github.com/favorapp/payments-service/internal/utils"
)

const openFavorListLimit = 100

// ReadinessChecker answers whether a helper's payment account can receive
// payments. Implemented by HelperStripeService.
type ReadinessChecker interface {
	CanReceivePayments(ctx context.Context, helperID uuid.UUID) (bool, string, error)
}

// PayoutInitiator kicks off the tip transfer after a favor completes.
// Implemented by TipPayoutService.
type PayoutInitiator interface {
	InitiateForFavor(ctx context.Context, favor *models.Favor) error
}

// FavorService owns the favor lifecycle: creation, listing, the apply
// gate, and completion. Applying to a tipped favor requires a ready
// payment account; volunteer favors (zero tip) skip the check entirely.
type FavorService struct {
	favorRepo repositories.FavorRepository
	readiness ReadinessChecker
	payouts   PayoutInitiator
	validate  *validator.Validate
}

func NewFavorService(favorRepo repositories.FavorRepository, readiness ReadinessChecker, payouts PayoutInitiator) *FavorService {
	return &FavorService{
		favorRepo: favorRepo,
		readiness: readiness,
		payouts:   payouts,
		validate:  validator.New(),
	}
}

func (s *FavorService) Create(ctx context.Context, requesterID uuid.UUID, req *dtos.CreateFavorRequest) (*models.Favor, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    "Invalid favor payload",
			Err:        err,
		}
	}

	favor := &models.Favor{
		ID:          uuid.New(),
		RequesterID: requesterID,
		Title:       req.Title,
		Description: req.Description,
		TipCents:    int64(math.Round(req.Tip * 100)),
		Status:      models.FavorStatusOpen,
	}
	if err := s.favorRepo.Create(ctx, favor); err != nil {
		return nil, fmt.Errorf("could not create favor: %w", err)
	}

	utils.Logger.Infof("Created favor %s (tip %d cents) for requester %s", favor.ID, favor.TipCents, requesterID)
	return favor, nil
}

func (s *FavorService) GetByID(ctx context.Context, id uuid.UUID) (*models.Favor, error) {
	favor, err := s.favorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if favor == nil {
		return nil, utils.ErrFavorNotFound
	}
	return favor, nil
}

func (s *FavorService) ListOpen(ctx context.Context) ([]*models.Favor, error) {
	return s.favorRepo.ListOpen(ctx, openFavorListLimit)
}

// Apply claims a favor for a helper. Volunteer favors proceed without any
// readiness lookup. Tipped favors require can_receive_payments=true; a
// failed or negative readiness check rejects the apply rather than letting
// a tip land on an account that cannot accept it.
func (s *FavorService) Apply(ctx context.Context, favorID, helperID uuid.UUID) error {
	favor, err := s.favorRepo.GetByID(ctx, favorID)
	if err != nil {
		return err
	}
	if favor == nil {
		return utils.ErrFavorNotFound
	}
	if favor.Status != models.FavorStatusOpen {
		return utils.ErrFavorNotOpen
	}

	if !favor.IsVolunteer() {
		ready, msg, err := s.readiness.CanReceivePayments(ctx, helperID)
		if err != nil {
			return err
		}
		if !ready {
			utils.Logger.Infof("Blocking apply for helper %s on favor %s: %s", helperID, favorID, msg)
			return utils.ErrPaymentAccountNotReady
		}
	}

	claimed, err := s.favorRepo.Claim(ctx, favorID, helperID)
	if err != nil {
		return err
	}
	if !claimed {
		return utils.ErrFavorNotOpen
	}

	utils.Logger.Infof("Helper %s claimed favor %s", helperID, favorID)
	return nil
}

// Complete marks a claimed favor done and, for tipped favors, starts the
// payout. The favor moves to PAID_OUT only after the payout record exists.
func (s *FavorService) Complete(ctx context.Context, favorID uuid.UUID, helperID uuid.UUID) error {
	favor, err := s.favorRepo.GetByID(ctx, favorID)
	if err != nil {
		return err
	}
	if favor == nil {
		return utils.ErrFavorNotFound
	}
	if favor.Status != models.FavorStatusClaimed {
		return utils.ErrFavorNotOpen
	}
	if favor.HelperID == nil || *favor.HelperID != helperID {
		return &utils.AppError{
			StatusCode: http.StatusForbidden,
			Code:       utils.ErrCodeForbidden,
			Message:    "Only the assigned helper can complete this favor",
		}
	}

	if err := s.favorRepo.SetStatus(ctx, favorID, models.FavorStatusCompleted); err != nil {
		return err
	}
	favor.Status = models.FavorStatusCompleted

	if favor.IsVolunteer() {
		utils.Logger.Infof("Volunteer favor %s completed; no payout", favorID)
		return nil
	}

	if err := s.payouts.InitiateForFavor(ctx, favor); err != nil {
		// The payout retry loop owns recovery; completion itself stands.
		utils.Logger.WithError(err).Errorf("Payout initiation for favor %s failed; retry loop will pick it up", favorID)
		return nil
	}

	return s.favorRepo.SetStatus(ctx, favorID, models.FavorStatusPaidOut)
}

// ToFavorResponse maps a favor to its API shape.
func ToFavorResponse(f *models.Favor) dtos.FavorResponse {
	return dtos.FavorResponse{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		HelperID:    f.HelperID,
		Title:       f.Title,
		Description: f.Description,
		Tip:         float64(f.TipCents) / 100.0,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt,
	}
}
