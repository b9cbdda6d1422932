package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/favorapp/payments-service/internal/dtos"
	"github.com/favorapp/payments-service/internal/services"
	"github.com/favorapp/payments-service/internal/utils"
)

// FavorsController handles the favor lifecycle endpoints.
type FavorsController struct {
	favorService *services.FavorService
}

func NewFavorsController(s *services.FavorService) *FavorsController {
	return &FavorsController{favorService: s}
}

// POST /api/v1/favors
func (c *FavorsController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := helperIDFromContext(w, r)
	if !ok {
		return
	}

	var req dtos.CreateFavorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Could not parse request body",
			nil,
			err,
		)
		return
	}

	favor, err := c.favorService.Create(r.Context(), requesterID, &req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, services.ToFavorResponse(favor))
}

// GET /api/v1/favors/open
func (c *FavorsController) ListOpenHandler(w http.ResponseWriter, r *http.Request) {
	favors, err := c.favorService.ListOpen(r.Context())
	if err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusInternalServerError,
			utils.ErrCodeInternal,
			"Failed to list open favors",
			nil,
			err,
		)
		return
	}

	resp := dtos.FavorListResponse{Favors: make([]dtos.FavorResponse, 0, len(favors))}
	for _, f := range favors {
		resp.Favors = append(resp.Favors, services.ToFavorResponse(f))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/favors/{id}/apply
func (c *FavorsController) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	helperID, ok := helperIDFromContext(w, r)
	if !ok {
		return
	}

	favorID, ok := favorIDFromPath(w, r)
	if !ok {
		return
	}

	err := c.favorService.Apply(r.Context(), favorID, helperID)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, dtos.ApplyFavorResponse{
			Applied: true,
			Message: "You're in! The requester has been notified.",
		})

	case errors.Is(err, utils.ErrPaymentAccountNotReady):
		// 409 so clients can distinguish "finish payment setup first"
		// from a validation failure.
		utils.RespondErrorWithCode(
			w,
			http.StatusConflict,
			utils.ErrCodePaymentAccountNotReady,
			"Set up your payment account before applying to tipped favors",
			nil,
		)

	case errors.Is(err, utils.ErrFavorNotFound):
		utils.RespondErrorWithCode(
			w,
			http.StatusNotFound,
			utils.ErrCodeNotFound,
			"Favor not found",
			nil,
		)

	case errors.Is(err, utils.ErrFavorNotOpen):
		utils.RespondErrorWithCode(
			w,
			http.StatusConflict,
			utils.ErrCodeFavorNotOpen,
			"This favor is no longer open",
			nil,
		)

	default:
		utils.HandleAppError(w, err)
	}
}

// POST /api/v1/favors/{id}/complete
func (c *FavorsController) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	helperID, ok := helperIDFromContext(w, r)
	if !ok {
		return
	}

	favorID, ok := favorIDFromPath(w, r)
	if !ok {
		return
	}

	err := c.favorService.Complete(r.Context(), favorID, helperID)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "completed"})

	case errors.Is(err, utils.ErrFavorNotFound):
		utils.RespondErrorWithCode(
			w,
			http.StatusNotFound,
			utils.ErrCodeNotFound,
			"Favor not found",
			nil,
		)

	case errors.Is(err, utils.ErrFavorNotOpen):
		utils.RespondErrorWithCode(
			w,
			http.StatusConflict,
			utils.ErrCodeFavorNotOpen,
			"This favor is not in a completable state",
			nil,
		)

	default:
		utils.HandleAppError(w, err)
	}
}

func favorIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := mux.Vars(r)["id"]
	favorID, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Invalid favor ID format",
			nil,
			err,
		)
		return uuid.Nil, false
	}
	return favorID, true
}
