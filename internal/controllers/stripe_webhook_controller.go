package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/favorapp/payments-service/internal/config"
	"github.com/favorapp/payments-service/internal/constants"
	"github.com/favorapp/payments-service/internal/dtos"
	"github.com/favorapp/payments-service/internal/services"
	"github.com/favorapp/payments-service/internal/utils"
)

const webhookCheckParam = "id"

// StripeWebhookController is the single webhook endpoint for every Stripe
// event this service cares about: helper account lifecycle, transfer
// reversals, and the deploy-time webhook_check probe.
type StripeWebhookController struct {
	cfg                       *config.Config
	helperStripeService       *services.HelperStripeService
	tipPayoutService          *services.TipPayoutService
	stripeWebhookCheckService *services.StripeWebhookCheckService
	webhookCheckGeneratedBy   string
}

func NewStripeWebhookController(
	cfg *config.Config,
	helperService *services.HelperStripeService,
	payoutService *services.TipPayoutService,
	webhookCheckService *services.StripeWebhookCheckService,
) *StripeWebhookController {

	wc := "webhook_check-" + fmt.Sprintf("%s-%s-%s", cfg.AppName, cfg.UniqueRunnerID, cfg.UniqueRunNumber)

	return &StripeWebhookController{
		cfg:                       cfg,
		helperStripeService:       helperService,
		tipPayoutService:          payoutService,
		stripeWebhookCheckService: webhookCheckService,
		webhookCheckGeneratedBy:   wc,
	}
}

// WebhookHandler -> POST /api/v1/payments/stripe/webhook
func (c *StripeWebhookController) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		utils.Logger.Error("Missing Stripe-Signature header")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to read webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var (
		event     stripe.Event
		verifyErr error
	)

	platformSecret := c.helperStripeService.PlatformWebhookSecret()
	connectSecret := c.helperStripeService.ConnectWebhookSecret()

	event, verifyErr = webhook.ConstructEvent(payload, sigHeader, platformSecret)
	if verifyErr == nil {
		utils.Logger.Debug("Webhook verified with platform secret")
	} else {
		event, verifyErr = webhook.ConstructEvent(payload, sigHeader, connectSecret)
		if verifyErr == nil {
			utils.Logger.Debug("Webhook verified with Connect secret")
		}
	}

	if verifyErr != nil {
		utils.Logger.WithError(verifyErr).Error("Stripe webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "account.updated":
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err == nil {
			if acct.Metadata[constants.WebhookMetadataAccountTypeKey] == constants.HelperAccountType {
				_ = c.helperStripeService.HandleAccountUpdated(&acct)
			} else {
				utils.Logger.Infof("Skipping account.updated for acctID=%s, unrecognized account_type=%q",
					acct.ID, acct.Metadata[constants.WebhookMetadataAccountTypeKey])
			}
		} else {
			utils.Logger.WithError(err).Error("Could not parse account in account.updated")
		}

	case "capability.updated":
		var capObj stripe.Capability
		if err := json.Unmarshal(event.Data.Raw, &capObj); err == nil {
			_ = c.helperStripeService.HandleCapabilityUpdated(&capObj)
		} else {
			utils.Logger.WithError(err).Error("Could not parse capability in capability.updated")
		}

	case "transfer.reversed":
		var t stripe.Transfer
		if err := json.Unmarshal(event.Data.Raw, &t); err == nil {
			_ = c.tipPayoutService.HandleTransferReversed(r.Context(), &t)
		} else {
			utils.Logger.WithError(err).Error("Could not parse transfer in transfer.reversed")
		}

	case "payment_intent.created":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
			if pi.Metadata[constants.WebhookMetadataGeneratedByKey] == c.webhookCheckGeneratedBy {
				c.stripeWebhookCheckService.HandlePaymentIntentCreated(event.ID, &pi)
			} else {
				utils.Logger.Infof("Skipping payment_intent.created for id=%s, unrecognized generated_by=%q",
					pi.ID, pi.Metadata[constants.WebhookMetadataGeneratedByKey])
			}
		} else {
			utils.Logger.WithError(err).Error("Could not parse payment intent in payment_intent.created")
		}

	default:
		utils.Logger.Infof("Unhandled Stripe event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// WebhookCheckHandler -> GET /api/v1/payments/stripe/webhook/check?id=<eventID>
func (c *StripeWebhookController) WebhookCheckHandler(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get(webhookCheckParam)
	if eventID == "" {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Missing 'id' query param",
			nil,
		)
		return
	}

	found := c.stripeWebhookCheckService.ConsumeWebhookCheckEvent(eventID)
	if !found {
		utils.RespondErrorWithCode(
			w,
			http.StatusNotFound,
			utils.ErrCodeNotFound,
			"Event ID not recognized or already consumed",
			nil,
		)
		return
	}

	resp := dtos.WebhookCheckResponse{Message: "Webhook event recognized"}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
