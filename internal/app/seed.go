package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/favorapp/payments-service/internal/models"
	"github.com/favorapp/payments-service/internal/repositories"
	"github.com/favorapp/payments-service/internal/utils"
)

const (
	DefaultIncompleteHelperID = "7f81acd2-55e1-49d3-b0c4-9a2e1bbb1111"
	DefaultActiveHelperID     = "7f81acd2-55e1-49d3-b0c4-9a2e1bbb2222"
)

// isUniqueViolation checks for a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SeedTestHelpers inserts two well-known helper accounts used by dev and
// staging test runs: one with no payment account, one fully set up except
// for the Stripe-side verification that only a live flow can complete.
func SeedTestHelpers(helperRepo repositories.HelperRepository) error {
	ctx := context.Background()

	if existing, err := helperRepo.GetByEmail(ctx, "helper-incomplete@favorapp.dev"); err != nil {
		return fmt.Errorf("look up default helper (incomplete): %w", err)
	} else if existing != nil {
		utils.Logger.Infof("Default helpers already seeded (id=%s); skipping.", existing.ID)
		return nil
	}

	hIncomplete := &models.Helper{
		ID:          uuid.MustParse(DefaultIncompleteHelperID),
		Email:       "helper-incomplete@favorapp.dev",
		PhoneNumber: "+15551110000",
		FirstName:   "DefaultHelper",
		LastName:    "SetupIncomplete",
		City:        "SeedCity",
		State:       "AL",
		ZipCode:     "90000",
	}
	if err := helperRepo.Create(ctx, hIncomplete); err != nil {
		if isUniqueViolation(err) {
			utils.Logger.Infof("Default helper (incomplete) already present (id=%s); skipping.", hIncomplete.ID)
		} else {
			return fmt.Errorf("insert default helper (incomplete): %w", err)
		}
	} else {
		utils.Logger.Infof("Created default helper (incomplete) id=%s", hIncomplete.ID)
	}

	hActive := &models.Helper{
		ID:          uuid.MustParse(DefaultActiveHelperID),
		Email:       "helper-active@favorapp.dev",
		PhoneNumber: "+15551110001",
		FirstName:   "DefaultHelper",
		LastName:    "SetupDone",
		City:        "SeedCity",
		State:       "AL",
		ZipCode:     "90000",
	}
	if err := helperRepo.Create(ctx, hActive); err != nil {
		if isUniqueViolation(err) {
			utils.Logger.Infof("Default helper (active) already present (id=%s); skipping.", hActive.ID)
			return nil
		}
		return fmt.Errorf("insert default helper (active): %w", err)
	}

	if err := helperRepo.UpdateWithRetry(ctx, hActive.ID, func(stored *models.Helper) error {
		stored.AccountStatus = models.AccountStatusActive
		stored.SetupProgress = models.SetupProgressPaymentAccountSetup
		return nil
	}); err != nil {
		return fmt.Errorf("update default helper (active): %w", err)
	}
	utils.Logger.Infof("Created default helper (active) id=%s", hActive.ID)
	return nil
}
