package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrHelperNotFound         = errors.New("helper_not_found")
	ErrFavorNotFound          = errors.New("favor_not_found")
	ErrFavorNotOpen           = errors.New("favor_not_open")
	ErrPaymentAccountNotReady = errors.New("payment_account_not_ready")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")

	// For external service failures (Stripe, SendGrid)
	ErrExternalServiceFailure = errors.New("external_service_failure")

	// The platform balance could not cover a transfer. Payouts that hit
	// this are retried once funds settle rather than on the normal backoff.
	ErrBalanceInsufficient = errors.New("platform_balance_insufficient")
)

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	case errors.Is(err, ErrRowVersionConflict):
		RespondErrorWithCode(w, http.StatusConflict, ErrCodeRowVersionConflict, "The record was modified concurrently; please retry", nil, err)
	default:
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
