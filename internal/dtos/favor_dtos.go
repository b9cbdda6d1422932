package dtos

import (
	"time"

	"github.com/google/uuid"
)

// CreateFavorRequest is the payload for POST /api/v1/favors.
// Tip is decimal dollars; 0 means a volunteer favor.
type CreateFavorRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	Tip         float64 `json:"tip" validate:"gte=0"`
}

type FavorResponse struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	HelperID    *uuid.UUID `json:"helper_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tip         float64    `json:"tip"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

type FavorListResponse struct {
	Favors []FavorResponse `json:"favors"`
}

// ApplyFavorResponse tells the client whether the apply went through or
// is blocked behind payment-account setup.
type ApplyFavorResponse struct {
	Applied bool   `json:"applied"`
	Message string `json:"message,omitempty"`
}
