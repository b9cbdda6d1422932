package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/transfer"

	"github.com/favorapp/payments-service/internal/config"
	"github.com/favorapp/payments-service/internal/constants"
	"github.com/favorapp/payments-service/internal/models"
	"github.com/favorapp/payments-service/internal/repositories"
	"github.com/favorapp/payments-service/internal/utils"
)

const (
	baseRetryDelay        = 1 * time.Hour
	maxRetries            = 5
	staleProcessingCutoff = 30 * time.Minute
)

const userFacingFailureEmailHTML = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333333; background-color: #f4f4f4; margin: 0; padding: 0; }
.container { padding: 20px; max-width: 600px; margin: 20px auto; background-color: #ffffff; border: 1px solid #dddddd; border-radius: 8px; }
.header { font-size: 24px; font-weight: bold; color: #d9534f; margin-bottom: 15px; }
.button-container { text-align: center; margin: 30px 0; }
.button { background-color: #2e8b57; color: white !important; padding: 12px 25px; text-align: center; text-decoration: none; display: inline-block; border-radius: 5px; font-weight: bold; }
.footer { margin-top: 20px; font-size: 12px; color: #777777; text-align: center; }
p { margin-bottom: 15px; }
</style>
</head>
<body>
<div class="container">
<p class="header">Action Required: Your Tip Payout Failed</p>
<p>Hi %s,</p>
<p>We were unable to send your tip of <strong>$%.2f</strong> to your payment account.</p>
<p><strong>Reason:</strong> %s</p>
<p>To receive your tip, please update your payout information in the Stripe Express Dashboard by clicking the button below.</p>
<div class="button-container">
  <a href="%s" class="button">Update Payout Information</a>
</div>
<p>If you continue to have issues after updating your information, please contact our support team.</p>
<div class="footer">The FavorApp Team</div>
</div>
</body>
</html>`

const internalFinanceEmailHTML = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { padding: 20px; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 5px; }
.header { font-size: 24px; font-weight: bold; color: #d9534f; }
.data-label { font-weight: bold; }
ul { list-style-type: none; padding: 0; }
li { margin-bottom: 10px; }
</style>
</head>
<body>
<div class="container">
<p class="header">URGENT: Platform Tip Payout Failure</p>
<p>A tip payout failed due to a platform-side issue. Please investigate immediately.</p>
<ul>
  <li><span class="data-label">Helper ID:</span> %s</li>
  <li><span class="data-label">Payout ID:</span> %s</li>
  <li><span class="data-label">Amount:</span> $%.2f</li>
  <li><span class="data-label">Reason:</span> %s</li>
</ul>
</div>
</body>
</html>`

// TipPayoutService moves a completed favor's tip from the platform balance
// to the helper's connected account. Stripe's automatic payout schedule
// handles the connected-account-to-bank leg.
type TipPayoutService struct {
	cfg            *config.Config
	helperRepo     repositories.HelperRepository
	payoutRepo     repositories.TipPayoutRepository
	sendgridClient *sendgrid.Client
	generatedBy    string
}

func NewTipPayoutService(cfg *config.Config, helperRepo repositories.HelperRepository, payoutRepo repositories.TipPayoutRepository) *TipPayoutService {
	stripe.Key = cfg.StripeSecretKey
	generated := fmt.Sprintf("%s-%s-%s", cfg.AppName, cfg.UniqueRunnerID, cfg.UniqueRunNumber)
	return &TipPayoutService{
		cfg:            cfg,
		helperRepo:     helperRepo,
		payoutRepo:     payoutRepo,
		sendgridClient: sendgrid.NewSendClient(cfg.SendgridAPIKey),
		generatedBy:    generated,
	}
}

// InitiateForFavor creates (or finds) the payout record for a completed
// favor and attempts the transfer immediately. Volunteer favors never
// reach this point. Idempotent per favor.
func (s *TipPayoutService) InitiateForFavor(ctx context.Context, favor *models.Favor) error {
	if favor.HelperID == nil {
		return fmt.Errorf("favor %s completed without an assigned helper", favor.ID)
	}
	if favor.TipCents <= 0 {
		return fmt.Errorf("favor %s has no tip; nothing to pay out", favor.ID)
	}

	existing, err := s.payoutRepo.GetByFavorID(ctx, favor.ID)
	if err != nil {
		return fmt.Errorf("could not check for existing payout: %w", err)
	}
	if existing != nil {
		utils.Logger.Infof("Payout %s already exists for favor %s; skipping creation", existing.ID, favor.ID)
		return nil
	}

	p := &models.TipPayout{
		ID:          uuid.New(),
		HelperID:    *favor.HelperID,
		FavorID:     favor.ID,
		AmountCents: favor.TipCents,
		Status:      models.PayoutStatusPending,
	}
	if err := s.payoutRepo.Create(ctx, p); err != nil {
		return fmt.Errorf("could not create payout record: %w", err)
	}
	utils.Logger.Infof("Created PENDING tip payout %s of %d cents for helper %s (favor %s)",
		p.ID, p.AmountCents, p.HelperID, p.FavorID)

	return s.processPayout(ctx, p)
}

// RetryDuePayouts is the cron entry point. It picks up FAILED payouts whose
// backoff has elapsed and tries them again.
func (s *TipPayoutService) RetryDuePayouts(ctx context.Context) error {
	due, err := s.payoutRepo.ListDueForRetry(ctx, utils.NowUTC())
	if err != nil {
		return fmt.Errorf("could not list payouts due for retry: %w", err)
	}
	if len(due) > 0 {
		utils.Logger.Infof("Found %d tip payouts due for retry", len(due))
	}

	for _, p := range due {
		if err := s.processPayout(ctx, p); err != nil {
			utils.Logger.WithError(err).Warnf("Retry of payout %s failed", p.ID)
		}
	}
	return nil
}

// ReconcileStaleProcessing finds payouts stuck in PROCESSING (e.g. the
// process died between the transfer call and the status update) and asks
// Stripe whether the transfer actually happened.
func (s *TipPayoutService) ReconcileStaleProcessing(ctx context.Context) error {
	cutoff := utils.NowUTC().Add(-staleProcessingCutoff)
	stale, err := s.payoutRepo.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("could not list stale PROCESSING payouts: %w", err)
	}

	for _, p := range stale {
		if p.StripeTransferID != nil && *p.StripeTransferID != "" {
			t, getErr := transfer.Get(*p.StripeTransferID, nil)
			if getErr == nil && t != nil {
				utils.Logger.Infof("Stale payout %s has confirmed transfer %s; marking PAID", p.ID, t.ID)
				s.markPaid(ctx, p.ID, t.ID)
				continue
			}
		}
		utils.Logger.Warnf("Stale payout %s has no confirmed transfer; marking FAILED for retry", p.ID)
		s.handleFailure(ctx, p, constants.ReasonUnknownTransferError, nil)
	}
	return nil
}

func (s *TipPayoutService) processPayout(ctx context.Context, p *models.TipPayout) error {
	helper, err := s.helperRepo.GetByID(ctx, p.HelperID)
	if err != nil || helper == nil {
		s.handleFailure(ctx, p, constants.ReasonHelperNotFound, nil)
		if err == nil {
			err = errors.New(constants.ReasonHelperNotFound)
		}
		return err
	}

	if helper.StripeConnectAccountID == nil || *helper.StripeConnectAccountID == "" {
		s.handleFailure(ctx, p, constants.ReasonMissingStripeID, nil)
		return errors.New(constants.ReasonMissingStripeID)
	}

	acct, err := account.GetByID(*helper.StripeConnectAccountID, nil)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			s.handleFailure(ctx, p, string(stripeErr.Code), nil)
		} else {
			s.handleFailure(ctx, p, constants.ReasonUnknownStripeAccountError, nil)
		}
		return err
	}

	if !acct.PayoutsEnabled {
		s.handleFailure(ctx, p, constants.ReasonAccountPayoutsDisabled, nil)
		return errors.New(constants.ReasonAccountPayoutsDisabled)
	}

	if err := s.payoutRepo.UpdateWithRetry(ctx, p.ID, func(stored *models.TipPayout) error {
		stored.Status = models.PayoutStatusProcessing
		stored.LastAttemptAt = utils.Ptr(utils.NowUTC())
		return nil
	}); err != nil {
		return fmt.Errorf("could not mark payout %s PROCESSING: %w", p.ID, err)
	}

	transferParams := &stripe.TransferParams{
		Amount:      stripe.Int64(p.AmountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(*helper.StripeConnectAccountID),
		Description: stripe.String(fmt.Sprintf("%s (favor %s)", constants.PayoutDescriptionPrefix, p.FavorID)),
		Metadata: map[string]string{
			constants.WebhookMetadataPayoutIDKey:    p.ID.String(),
			"helper_id":                             p.HelperID.String(),
			constants.WebhookMetadataGeneratedByKey: s.generatedBy,
		},
	}
	transferParams.SetIdempotencyKey(fmt.Sprintf("%s-transfer-%d", p.ID.String(), p.RetryCount))

	t, transferErr := transfer.New(transferParams)
	if transferErr != nil {
		if stripeErr, ok := transferErr.(*stripe.Error); ok {
			s.handleFailure(ctx, p, string(stripeErr.Code), nil)
			if stripeErr.Code == stripe.ErrorCodeBalanceInsufficient {
				return utils.ErrBalanceInsufficient
			}
		} else {
			s.handleFailure(ctx, p, constants.ReasonUnknownTransferError, nil)
		}
		return transferErr
	}

	utils.Logger.Infof("Created Stripe Transfer %s for tip payout %s", t.ID, p.ID)
	s.markPaid(ctx, p.ID, t.ID)
	return nil
}

func (s *TipPayoutService) markPaid(ctx context.Context, payoutID uuid.UUID, transferID string) {
	if err := s.payoutRepo.UpdateWithRetry(ctx, payoutID, func(stored *models.TipPayout) error {
		stored.StripeTransferID = &transferID
		if stored.Status == models.PayoutStatusProcessing {
			stored.Status = models.PayoutStatusPaid
			stored.LastFailureReason = nil
			stored.NextAttemptAt = nil
		}
		return nil
	}); err != nil {
		utils.Logger.WithError(err).Errorf("CRITICAL: Transfer %s succeeded but failed to mark payout %s PAID", transferID, payoutID)
	}
}

func (s *TipPayoutService) handleFailure(ctx context.Context, p *models.TipPayout, reason string, transferID *string) {
	err := s.payoutRepo.UpdateWithRetry(ctx, p.ID, func(stored *models.TipPayout) error {
		utils.Logger.Warnf("Tip payout %s for helper %s failed. Reason: %s", stored.ID, stored.HelperID, reason)
		stored.Status = models.PayoutStatusFailed
		stored.LastFailureReason = &reason
		if transferID != nil {
			stored.StripeTransferID = transferID
		}

		stored.RetryCount++
		isRecoverable, requiresUserAction := IsFailureRecoverable(reason)

		if !isRecoverable || stored.RetryCount >= maxRetries {
			stored.NextAttemptAt = nil
			utils.Logger.Errorf("Tip payout %s for helper %s will not be retried automatically. Reason: %s", stored.ID, stored.HelperID, reason)
			s.sendFailureNotification(ctx, stored, requiresUserAction)
		} else {
			delay := baseRetryDelay * time.Duration(math.Pow(2, float64(stored.RetryCount-1)))
			nextAttempt := utils.NowUTC().Add(delay)
			stored.NextAttemptAt = &nextAttempt
			utils.Logger.Warnf("Scheduling retry #%d for tip payout %s at %s", stored.RetryCount, stored.ID, nextAttempt)
		}
		return nil
	})

	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to update tip payout %s after failure", p.ID)
	}
}

func (s *TipPayoutService) sendFailureNotification(ctx context.Context, p *models.TipPayout, isUserFault bool) {
	helper, err := s.helperRepo.GetByID(ctx, p.HelperID)
	if err != nil || helper == nil {
		utils.Logger.WithError(err).Error("Failed to fetch helper for failure notification")
		return
	}

	from := mail.NewEmail("FavorApp", s.cfg.SendgridFromEmail)
	var subject, plainTextContent, htmlContent string
	var to *mail.Email

	reason := constants.ReasonUnknownTransferError
	if p.LastFailureReason != nil {
		reason = *p.LastFailureReason
	}

	if isUserFault {
		to = mail.NewEmail(helper.FirstName+" "+helper.LastName, helper.Email)
		subject = constants.EmailSubjectPayoutFailureActionRequired

		plainTextContent = fmt.Sprintf(
			"Hi %s,\n\nYour tip of $%.2f could not be sent to your payment account. Reason: %s\n\nPlease update your payout information in the Stripe Express Dashboard: %s\n\nIf you continue to have issues, please contact support.\n\n- The FavorApp Team",
			helper.FirstName,
			float64(p.AmountCents)/100.0,
			reason,
			constants.StripeExpressDashboardURL,
		)
		htmlContent = fmt.Sprintf(
			userFacingFailureEmailHTML,
			helper.FirstName,
			float64(p.AmountCents)/100.0,
			reason,
			constants.StripeExpressDashboardURL,
		)
	} else {
		to = mail.NewEmail(constants.FinanceTeamName, constants.FinanceTeamEmail)
		subject = fmt.Sprintf(constants.EmailSubjectPayoutFailurePlatformIssue, helper.ID)

		plainTextContent = fmt.Sprintf(
			"A tip payout of $%.2f for helper %s (Payout ID: %s) failed due to a platform-side issue. Reason: %s\n\nPlease investigate immediately.",
			float64(p.AmountCents)/100.0,
			helper.ID.String(),
			p.ID.String(),
			reason,
		)
		htmlContent = fmt.Sprintf(
			internalFinanceEmailHTML,
			helper.ID.String(),
			p.ID.String(),
			float64(p.AmountCents)/100.0,
			reason,
		)
	}

	msg := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	if _, err := s.sendgridClient.Send(msg); err != nil {
		utils.Logger.WithError(err).Error("Failed to send payout failure notification")
	}
}

// HandleTransferReversed logs reversal events for visibility. Reversals are
// manual operations and do not automatically fail the associated payout.
func (s *TipPayoutService) HandleTransferReversed(ctx context.Context, t *stripe.Transfer) error {
	if generator, ok := t.Metadata[constants.WebhookMetadataGeneratedByKey]; !ok || generator != s.generatedBy {
		utils.Logger.Infof("Ignoring transfer.reversed for Transfer %s generated elsewhere", t.ID)
		return nil
	}

	p, err := s.payoutRepo.GetByStripeTransferID(ctx, t.ID)
	if err != nil || p == nil {
		utils.Logger.WithError(err).Warnf("Received transfer.reversed for Transfer %s with no matching payout record", t.ID)
		return nil
	}

	utils.Logger.Warnf("Transfer %s (tip payout %s for helper %s) was reversed. Please investigate.", t.ID, p.ID, p.HelperID)
	return nil
}

// IsFailureRecoverable reports whether a failure is transient enough to
// retry automatically, and whether the helper has to act to fix it.
func IsFailureRecoverable(reason string) (isSystemRecoverable bool, requiresUserAction bool) {
	switch reason {
	case string(stripe.PayoutFailureCodeAccountClosed),
		string(stripe.PayoutFailureCodeBankAccountRestricted),
		string(stripe.PayoutFailureCodeInvalidAccountNumber),
		string(stripe.ErrorCodePayoutsNotAllowed),
		constants.ReasonMissingStripeID,
		constants.ReasonAccountPayoutsDisabled,
		string(stripe.PayoutFailureCodeNoAccount),
		string(stripe.PayoutFailureCodeDebitNotAuthorized),
		string(stripe.PayoutFailureCodeAccountFrozen):
		return false, true

	case string(stripe.ErrorCodeBalanceInsufficient),
		string(stripe.PayoutFailureCodeCouldNotProcess),
		constants.ReasonUnknownStripeAccountError,
		constants.ReasonUnknownTransferError:
		return true, false

	case constants.ReasonHelperNotFound:
		return false, false

	default:
		return false, false
	}
}
