package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountlink"
	"github.com/stripe/stripe-go/v82/balance"
	"github.com/stripe/stripe-go/v82/webhookendpoint"

	"github.com/favorapp/payments-service/internal/config"
	"github.com/favorapp/payments-service/internal/constants"
	"github.com/favorapp/payments-service/internal/dtos"
	"github.com/favorapp/payments-service/internal/models"
	"github.com/favorapp/payments-service/internal/repositories"
	"github.com/favorapp/payments-service/internal/routes"
	"github.com/favorapp/payments-service/internal/utils"
)

const (
	createStripeWebhookMaxRetries = 3
	kindKey                       = "kind"
	kindPlatform                  = "platform"
	kindConnect                   = "connect"
)

var (
	platformEvents = []string{
		"payment_intent.created",
	}
	connectEvents = []string{
		"account.updated",
		"capability.updated",
		"transfer.reversed",
	}
)

// accountFetcher retrieves a Connect account from Stripe. The seam lets
// status interpretation be tested without network calls.
type accountFetcher interface {
	Fetch(id string) (*stripe.Account, error)
}

type stripeAccountFetcher struct{}

func (stripeAccountFetcher) Fetch(id string) (*stripe.Account, error) {
	return account.GetByID(id, nil)
}

// HelperStripeService orchestrates the Stripe Connect Express flow for
// helpers: account creation, onboarding links, and the authoritative
// "can this helper receive payments" interpretation.
type HelperStripeService struct {
	Cfg         *config.Config
	repo        repositories.HelperRepository
	accounts    accountFetcher
	generatedBy string

	webhookPlatformID     string
	webhookConnectID      string
	webhookPlatformSecret string
	webhookConnectSecret  string
	mu                    sync.Mutex
}

func NewHelperStripeService(cfg *config.Config, repo repositories.HelperRepository) *HelperStripeService {
	stripe.Key = cfg.StripeSecretKey

	generated := fmt.Sprintf("%s-%s-%s", cfg.AppName, cfg.UniqueRunnerID, cfg.UniqueRunNumber)
	return &HelperStripeService{
		Cfg:         cfg,
		repo:        repo,
		accounts:    stripeAccountFetcher{},
		generatedBy: generated,
	}
}

// ----------------------------------------------------------------------
// Dynamic webhook-endpoint management
// ----------------------------------------------------------------------

func (s *HelperStripeService) PlatformWebhookSecret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhookPlatformSecret
}

func (s *HelperStripeService) ConnectWebhookSecret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhookConnectSecret
}

func (s *HelperStripeService) Start(ctx context.Context) error {
	if !s.Cfg.LDFlag_DynamicStripeWebhookEndpoint {
		s.webhookPlatformSecret = s.Cfg.StripeWebhookSecret
		s.webhookConnectSecret = s.Cfg.StripeWebhookSecret
		return nil
	}
	dest := s.Cfg.AppUrl + routes.PaymentsStripeWebhook

	pID, pSecret, err := s.ensureStripeEndpoint(ctx, dest, platformEvents, false)
	if err != nil {
		return err
	}
	cID, cSecret, err := s.ensureStripeEndpoint(ctx, dest, connectEvents, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.webhookPlatformID = pID
	s.webhookConnectID = cID
	s.webhookPlatformSecret = pSecret
	s.webhookConnectSecret = cSecret
	s.mu.Unlock()

	return nil
}

func (s *HelperStripeService) Stop(ctx context.Context) error {
	if !s.Cfg.LDFlag_DynamicStripeWebhookEndpoint {
		return nil
	}
	s.mu.Lock()
	ids := []string{s.webhookPlatformID, s.webhookConnectID}
	s.mu.Unlock()

	for _, id := range ids {
		if id == "" {
			continue
		}
		delParams := &stripe.WebhookEndpointParams{}
		delParams.Params.Context = ctx
		if _, err := webhookendpoint.Del(id, delParams); err != nil {
			utils.Logger.WithError(err).Warnf("Failed to delete Stripe webhook endpoint %s", id)
		} else {
			utils.Logger.Infof("Deleted Stripe webhook endpoint %s", id)
		}
	}
	return nil
}

// ensureStripeEndpoint deletes any existing matching endpoint (URL+kind) or
// endpoints lacking kind metadata, then unconditionally creates a new one.
func (s *HelperStripeService) ensureStripeEndpoint(
	ctx context.Context,
	url string,
	events []string,
	connect bool,
) (string, string, error) {

	kind := kindPlatform
	if connect {
		kind = kindConnect
	}

	// 1) Remove all endpoints with the same URL and kind (or missing kind)
	if err := s.cleanupStaleEndpoints(ctx, url, kind); err != nil {
		return "", "", err
	}

	// 2) Create a fresh endpoint
	create := &stripe.WebhookEndpointParams{
		URL:           stripe.String(url),
		EnabledEvents: toPtrSlice(events),
		Metadata: map[string]string{
			kindKey: kind,
		},
		APIVersion: stripe.String(stripe.APIVersion),
	}
	create.Params.Context = ctx
	if connect {
		create.Connect = stripe.Bool(true)
	}

	var tries int
createAttempt:
	tries++
	ep, err := webhookendpoint.New(create)
	if err == nil {
		utils.Logger.Infof("Created Stripe webhook endpoint %s (kind=%s)", ep.ID, kind)
		return ep.ID, ep.Secret, nil
	}

	switch {
	case limitErr(err):
		if tries > createStripeWebhookMaxRetries {
			return "", "", fmt.Errorf("endpoint limit reached; retries exhausted: %w", err)
		}
		utils.Logger.Warn("Endpoint limit hit – deleting one endpoint and retrying…")
		if rmErr := s.removeOldestStripeEndpoint(ctx, url); rmErr != nil {
			return "", "", rmErr
		}
		goto createAttempt

	case urlTakenErr(err):
		utils.Logger.Warn("URL already taken – attempting to delete existing matching endpoint and retry…")
		if rmErr := s.cleanupStaleEndpoints(ctx, url, kind); rmErr != nil {
			return "", "", rmErr
		}
		goto createAttempt
	}

	return "", "", err
}

// cleanupStaleEndpoints removes any endpoint that
//   - shares the URL and has no kind metadata, OR
//   - shares the URL and has the same kind metadata.
func (s *HelperStripeService) cleanupStaleEndpoints(
	ctx context.Context,
	url string,
	wantKind string,
) error {

	lp := &stripe.WebhookEndpointListParams{}
	lp.Limit = stripe.Int64(100)
	lp.Context = ctx
	for it := webhookendpoint.List(lp); it.Next(); {
		ep := it.WebhookEndpoint()
		if ep.URL != url {
			continue
		}

		gotKind := ep.Metadata[kindKey] // empty if missing
		remove := gotKind == "" || gotKind == wantKind

		if remove {
			utils.Logger.Infof("Removing stale Stripe endpoint %s (kind=%s)", ep.ID, gotKind)
			delParams := &stripe.WebhookEndpointParams{}
			delParams.Params.Context = ctx
			if _, err := webhookendpoint.Del(ep.ID, delParams); err != nil {
				return fmt.Errorf("delete stale endpoint %s: %w", ep.ID, err)
			}
		}
	}
	return nil
}

// removeOldestStripeEndpoint deletes an endpoint to free capacity, trying oldest first.
// It will gracefully handle 404s if another service deletes the same endpoint first.
func (s *HelperStripeService) removeOldestStripeEndpoint(ctx context.Context, targetURL string) error {
	lp := &stripe.WebhookEndpointListParams{}
	lp.Limit = stripe.Int64(100)
	lp.Context = ctx

	var removableEndpoints []*stripe.WebhookEndpoint
	for it := webhookendpoint.List(lp); it.Next(); {
		ep := it.WebhookEndpoint()
		if ep.URL != targetURL {
			removableEndpoints = append(removableEndpoints, ep)
		}
	}

	if len(removableEndpoints) == 0 {
		return fmt.Errorf("no removable webhook endpoints found")
	}

	sort.Slice(removableEndpoints, func(i, j int) bool {
		return removableEndpoints[i].Created < removableEndpoints[j].Created
	})

	for _, ep := range removableEndpoints {
		_, err := webhookendpoint.Del(ep.ID, nil)
		if err == nil {
			utils.Logger.Infof("Removed oldest Stripe webhook endpoint %s to free slot", ep.ID)
			return nil
		}

		// A 404 means another service beat us to it; try the next oldest.
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			utils.Logger.Warnf("Attempted to delete webhook %s, but it was already gone. Trying next oldest.", ep.ID)
			continue
		}

		return fmt.Errorf("failed to delete webhook %s to free slot: %w", ep.ID, err)
	}

	return fmt.Errorf("could not free a webhook slot; all candidates were deleted by other processes")
}

// ----------------------------------------------------------------------
// Create or retrieve a Connect account, then return the onboarding link
// ----------------------------------------------------------------------

func (s *HelperStripeService) GetExpressOnboardingURL(ctx context.Context, helperID uuid.UUID) (string, error) {
	helper, err := s.repo.GetByID(ctx, helperID)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to retrieve helper for GetExpressOnboardingURL")
		return "", fmt.Errorf("could not retrieve helper: %w", err)
	}
	if helper == nil {
		return "", fmt.Errorf("%w (ID=%s)", utils.ErrHelperNotFound, helperID)
	}

	if !s.Cfg.LDFlag_AllowOOSSetupFlow {
		if helper.SetupProgress != models.SetupProgressPaymentAccountSetup {
			utils.Logger.Errorf("Helper is not in PAYMENT_ACCOUNT_SETUP state, instead in %s.", helper.SetupProgress)
			return "", fmt.Errorf("onboarding URL can not be generated outside of normal flow; helper %s is in %s state", helper.ID, helper.SetupProgress)
		}
	}

	var acctID string
	if helper.StripeConnectAccountID == nil || *helper.StripeConnectAccountID == "" {
		acctID, err = s.initializeStripeConnectExpressAccount(ctx, helper)
		if err != nil {
			utils.Logger.WithError(err).Error("Failed to create Stripe Connect account")
			return "", fmt.Errorf("could not create Stripe Connect account: %w", err)
		}
	} else {
		acctID = *helper.StripeConnectAccountID
	}

	linkParams := &stripe.AccountLinkParams{
		Account:    stripe.String(acctID),
		ReturnURL:  stripe.String(s.Cfg.AppUrl + routes.HelperStripeConnectFlowReturn),
		RefreshURL: stripe.String(s.Cfg.AppUrl + routes.HelperStripeConnectFlowRefresh),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
		CollectionOptions: &stripe.AccountLinkCollectionOptionsParams{
			Fields: stripe.String(stripe.AccountLinkCollectEventuallyDue),
		},
	}
	acctLink, err := accountlink.New(linkParams)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to create Stripe AccountLink")
		return "", fmt.Errorf("could not create AccountLink: %w", err)
	}
	return acctLink.URL, nil
}

// ----------------------------------------------------------------------
// Account status interpretation
// ----------------------------------------------------------------------

// GetAccountStatus maps the helper's Stripe Connect account into the
// readiness shape the mobile flow gates on. Stripe failures degrade to
// can_receive_payments=false rather than an error: falsely reporting
// readiness would let an ineligible helper attempt a paid favor. The
// returned error is reserved for input/DB problems.
func (s *HelperStripeService) GetAccountStatus(ctx context.Context, helperID uuid.UUID) (*dtos.AccountStatusResponse, error) {
	helper, err := s.repo.GetByID(ctx, helperID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, fmt.Errorf("%w (ID=%s)", utils.ErrHelperNotFound, helperID)
	}

	if helper.StripeConnectAccountID == nil || *helper.StripeConnectAccountID == "" {
		return &dtos.AccountStatusResponse{
			HasAccount:         false,
			CanReceivePayments: false,
			Message:            "No payment account yet. Set one up to receive tips.",
		}, nil
	}

	acctID := *helper.StripeConnectAccountID
	acct, accErr := s.accounts.Fetch(acctID)
	if accErr != nil {
		utils.Logger.WithError(accErr).Warnf("Failed to fetch Stripe account %s; reporting not ready", acctID)
		return &dtos.AccountStatusResponse{
			HasAccount:         true,
			CanReceivePayments: false,
			AccountID:          &acctID,
			Message:            "We could not verify your payment account right now. Please try again.",
		}, nil
	}

	if acct.DetailsSubmitted && acct.PayoutsEnabled {
		// Advance the helper once Stripe confirms readiness.
		if helper.SetupProgress != models.SetupProgressDone {
			if updErr := s.repo.UpdateWithRetry(ctx, helper.ID, func(stored *models.Helper) error {
				stored.SetupProgress = models.SetupProgressDone
				stored.AccountStatus = models.AccountStatusActive
				return nil
			}); updErr != nil {
				return nil, updErr
			}
		}
		return &dtos.AccountStatusResponse{
			HasAccount:         true,
			CanReceivePayments: true,
			AccountID:          &acctID,
			Message:            "Your payment account is ready to receive tips.",
		}, nil
	}

	return &dtos.AccountStatusResponse{
		HasAccount:         true,
		CanReceivePayments: false,
		AccountID:          &acctID,
		Message:            "Your payment account setup is still being processed by our payment provider.",
	}, nil
}

// CanReceivePayments is the boolean convenience used by the favor apply
// path. It shares GetAccountStatus's fail-closed policy.
func (s *HelperStripeService) CanReceivePayments(ctx context.Context, helperID uuid.UUID) (bool, string, error) {
	status, err := s.GetAccountStatus(ctx, helperID)
	if err != nil {
		return false, "", err
	}
	return status.CanReceivePayments, status.Message, nil
}

// GetBalance fetches the connected account's balance. Informational only.
func (s *HelperStripeService) GetBalance(ctx context.Context, helperID uuid.UUID) (*dtos.BalanceResponse, error) {
	helper, err := s.repo.GetByID(ctx, helperID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, fmt.Errorf("%w (ID=%s)", utils.ErrHelperNotFound, helperID)
	}
	if helper.StripeConnectAccountID == nil || *helper.StripeConnectAccountID == "" {
		return nil, fmt.Errorf("helper %s has no connected account", helperID)
	}

	params := &stripe.BalanceParams{}
	params.Context = ctx
	params.SetStripeAccount(*helper.StripeConnectAccountID)

	bal, err := balance.Get(params)
	if err != nil {
		return nil, fmt.Errorf("%w: could not fetch balance: %v", utils.ErrExternalServiceFailure, err)
	}

	resp := &dtos.BalanceResponse{Currency: "usd"}
	if len(bal.Available) > 0 {
		resp.Available = float64(bal.Available[0].Amount) / 100.0
		resp.Currency = string(bal.Available[0].Currency)
	}
	if len(bal.Pending) > 0 {
		resp.Pending = float64(bal.Pending[0].Amount) / 100.0
	}
	return resp, nil
}

// ----------------------------------------------------------------------
// Webhook handlers for Stripe events
// ----------------------------------------------------------------------

func (s *HelperStripeService) HandleAccountUpdated(acct *stripe.Account) error {
	if acct.Metadata[constants.WebhookMetadataGeneratedByKey] != s.generatedBy {
		utils.Logger.Infof("Skipping account.updated for %s; metadata=%q != %q",
			acct.ID, acct.Metadata[constants.WebhookMetadataGeneratedByKey], s.generatedBy)
		return nil
	}
	utils.Logger.Infof("account.updated: acctID=%s, details_submitted=%v, payouts_enabled=%v",
		acct.ID, acct.DetailsSubmitted, acct.PayoutsEnabled)

	ctx := context.Background()
	helper, err := s.repo.GetByStripeConnectAccountID(ctx, acct.ID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Could not find helper by connect account %s", acct.ID)
		return err
	}
	if helper == nil {
		utils.Logger.Warnf("No helper found for connect account %s", acct.ID)
		return nil
	}

	if acct.DetailsSubmitted && acct.PayoutsEnabled {
		if s.Cfg.LDFlag_AllowOOSSetupFlow ||
			(!s.Cfg.LDFlag_AllowOOSSetupFlow && helper.SetupProgress == models.SetupProgressPaymentAccountSetup) {

			if updErr := s.repo.UpdateWithRetry(ctx, helper.ID, func(stored *models.Helper) error {
				stored.SetupProgress = models.SetupProgressDone
				stored.AccountStatus = models.AccountStatusActive
				return nil
			}); updErr != nil {
				utils.Logger.WithError(updErr).Error("Failed to update helper after Express onboarding")
				return updErr
			}
			utils.Logger.Infof("Helper %s payment account setup DONE", helper.ID)
		}
	}
	return nil
}

func (s *HelperStripeService) HandleCapabilityUpdated(capObj *stripe.Capability) error {
	if capObj.ID != constants.StripeCapabilityTransfers {
		utils.Logger.Debugf("Ignoring capability.updated for %s (capability=%s)", capObj.Account.ID, capObj.ID)
		return nil
	}
	acc, err := s.accounts.Fetch(capObj.Account.ID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to fetch account %s for capability.updated", capObj.Account.ID)
		return err
	}
	if acc.Metadata[constants.WebhookMetadataGeneratedByKey] != s.generatedBy {
		utils.Logger.Infof("Skipping capability.updated for %s; metadata=%q != %q",
			acc.ID, acc.Metadata[constants.WebhookMetadataGeneratedByKey], s.generatedBy)
		return nil
	}
	utils.Logger.Infof("capability.updated: acctID=%s, capability=%s, status=%s",
		capObj.Account.ID, capObj.ID, capObj.Status)
	return nil
}

func (s *HelperStripeService) initializeStripeConnectExpressAccount(ctx context.Context, helper *models.Helper) (string, error) {
	acctParams := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Country:      stripe.String("US"),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			ProductDescription: stripe.String("Helper for FavorApp"),
		},
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
		Metadata: map[string]string{
			constants.WebhookMetadataGeneratedByKey: s.generatedBy,
			constants.WebhookMetadataAccountTypeKey: constants.HelperAccountType,
		},
	}

	if s.Cfg.LDFlag_PrefillStripeExpressKYC {
		acctParams.Individual = &stripe.PersonParams{
			FirstName: stripe.String(helper.FirstName),
			LastName:  stripe.String(helper.LastName),
			DOB: &stripe.PersonDOBParams{
				Day:   stripe.Int64(1),
				Month: stripe.Int64(1),
				Year:  stripe.Int64(1990),
			},
			SSNLast4: stripe.String("1234"),
		}
		acctParams.ExternalAccount = &stripe.AccountExternalAccountParams{
			Token: stripe.String("btok_us_verified"),
		}
	}

	acct, createErr := account.New(acctParams)
	if createErr != nil {
		utils.Logger.WithError(createErr).Error("Failed to create Stripe Connect account")
		return "", fmt.Errorf("could not create Stripe Connect account: %w", createErr)
	}
	acctID := acct.ID

	if err := s.repo.UpdateWithRetry(ctx, helper.ID, func(stored *models.Helper) error {
		stored.StripeConnectAccountID = &acctID
		return nil
	}); err != nil {
		utils.Logger.WithError(err).Error("Failed to update helper with new Connect account ID")
		return "", fmt.Errorf("could not update helper with new connect account ID: %w", err)
	}

	return acctID, nil
}

func toPtrSlice(events []string) []*string {
	out := make([]*string, len(events))
	for i, s := range events {
		out[i] = stripe.String(s)
	}
	return out
}

// Helpers for Stripe error inspection.
func limitErr(err error) bool {
	if se, ok := err.(*stripe.Error); ok && se.Type == stripe.ErrorTypeInvalidRequest {
		return strings.Contains(se.Msg, "Allowed webhook API limit exceeded") ||
			strings.Contains(se.Msg, "16 test webhook endpoints") ||
			strings.Contains(se.Msg, "16 webhook endpoints")
	}
	return false
}

func urlTakenErr(err error) bool {
	if se, ok := err.(*stripe.Error); ok && se.Type == stripe.ErrorTypeInvalidRequest {
		msg := strings.ToLower(se.Msg)
		return strings.Contains(msg, "url has already been taken") ||
			strings.Contains(msg, "url is already in use")
	}
	return false
}
