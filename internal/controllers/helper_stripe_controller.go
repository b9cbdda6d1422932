package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/favorapp/payments-service/internal/dtos"
	"github.com/favorapp/payments-service/internal/middleware"
	"github.com/favorapp/payments-service/internal/routes"
	"github.com/favorapp/payments-service/internal/services"
	"github.com/favorapp/payments-service/internal/utils"
)

// HelperStripeController handles helper-specific Stripe endpoints
type HelperStripeController struct {
	helperStripeService *services.HelperStripeService
}

func NewHelperStripeController(s *services.HelperStripeService) *HelperStripeController {
	return &HelperStripeController{helperStripeService: s}
}

// GET /api/v1/payments/helper/stripe/connect-flow
func (c *HelperStripeController) ConnectFlowURLHandler(w http.ResponseWriter, r *http.Request) {
	helperID, ok := helperIDFromContext(w, r)
	if !ok {
		return
	}

	url, err := c.helperStripeService.GetExpressOnboardingURL(r.Context(), helperID)
	if err != nil {
		if errors.Is(err, utils.ErrHelperNotFound) {
			utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Helper not found", nil, err)
			return
		}
		utils.RespondErrorWithCode(
			w,
			http.StatusInternalServerError,
			utils.ErrCodeInternal,
			"Failed to create onboarding link",
			nil,
			err,
		)
		return
	}

	resp := dtos.StripeConnectFlowURLResponse{
		OnboardingURL: url,
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/payments/helper/stripe/account-status
func (c *HelperStripeController) AccountStatusHandler(w http.ResponseWriter, r *http.Request) {
	helperID, ok := helperIDFromContext(w, r)
	if !ok {
		return
	}

	status, err := c.helperStripeService.GetAccountStatus(r.Context(), helperID)
	if err != nil {
		if errors.Is(err, utils.ErrHelperNotFound) {
			utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Helper not found", nil, err)
			return
		}
		// A real system/db error => return 500. Stripe-side failures are
		// already folded into the status payload by the service.
		utils.Logger.WithError(err).Error("System error checking account status")
		utils.RespondErrorWithCode(
			w,
			http.StatusInternalServerError,
			utils.ErrCodeInternal,
			"Failed to retrieve account status",
			nil,
			err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, status)
}

// GET /api/v1/payments/helper/stripe/balance
func (c *HelperStripeController) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	helperID, ok := helperIDFromContext(w, r)
	if !ok {
		return
	}

	bal, err := c.helperStripeService.GetBalance(r.Context(), helperID)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrHelperNotFound):
			utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Helper not found", nil, err)
		case errors.Is(err, utils.ErrExternalServiceFailure):
			utils.RespondErrorWithCode(w, http.StatusBadGateway, utils.ErrCodeExternalServiceFailure, "Payment provider is unavailable", nil, err)
		default:
			utils.RespondErrorWithCode(
				w,
				http.StatusInternalServerError,
				utils.ErrCodeInternal,
				"Failed to retrieve balance",
				nil,
				err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, bal)
}

// GET /api/v1/payments/helper/stripe/connect-flow-return
func (c *HelperStripeController) ConnectFlowReturnHandler(w http.ResponseWriter, r *http.Request) {
	redirectURL := c.helperStripeService.Cfg.AppUrl + routes.HelperUniversalLinkStripeConnectReturn
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// GET /api/v1/payments/helper/stripe/connect-flow-refresh
func (c *HelperStripeController) ConnectFlowRefreshHandler(w http.ResponseWriter, r *http.Request) {
	redirectURL := c.helperStripeService.Cfg.AppUrl + routes.HelperUniversalLinkStripeConnectRefresh
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// helperIDFromContext pulls the authenticated helper ID out of the request
// context. Writes the error response itself when the ID is missing or bad.
func helperIDFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ctxUserID := r.Context().Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusUnauthorized,
			utils.ErrCodeUnauthorized,
			"Missing userID in context",
			nil,
		)
		return uuid.Nil, false
	}

	helperID, err := uuid.Parse(ctxUserID.(string))
	if err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Invalid helper ID format",
			nil,
			err,
		)
		return uuid.Nil, false
	}
	return helperID, true
}
