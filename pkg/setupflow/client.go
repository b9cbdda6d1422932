package setupflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/favorapp/payments-service/internal/routes"
	"github.com/favorapp/payments-service/internal/utils"
)

const defaultClientTimeout = 15 * time.Second

const statusFailureMessage = "We could not check your payment account right now. Please try again."

// StatusClient talks to the payments backend on behalf of an
// authenticated helper. It implements both StatusChecker and
// SessionSource for the Coordinator.
//
// There is no caching: readiness can change at any moment on Stripe's
// side, so every question round-trips to the backend.
type StatusClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewStatusClient builds a client for the backend at baseURL,
// authenticating with the helper's bearer token.
func NewStatusClient(baseURL, token string) *StatusClient {
	return &StatusClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// GetAccountStatus fetches the authoritative readiness snapshot. It never
// returns an error: transport failures, non-200 responses, and malformed
// bodies all collapse into a not-ready status.
func (c *StatusClient) GetAccountStatus(ctx context.Context) AccountStatus {
	var status AccountStatus
	if err := c.getJSON(ctx, routes.HelperStripeAccountStatus, &status); err != nil {
		utils.Logger.WithError(err).Warn("Account status check failed; reporting not ready")
		return AccountStatus{
			HasAccount:         false,
			CanReceivePayments: false,
			Message:            statusFailureMessage,
		}
	}
	return status
}

// CanReceivePayments reports whether the helper can receive payments
// right now. False on any failure.
func (c *StatusClient) CanReceivePayments(ctx context.Context) bool {
	return c.GetAccountStatus(ctx).CanReceivePayments
}

// GetBalance fetches the helper's balance. Returns nil on any failure;
// callers treat a nil balance as "unavailable", never as zero.
func (c *StatusClient) GetBalance(ctx context.Context) *Balance {
	var bal Balance
	if err := c.getJSON(ctx, routes.HelperStripeBalance, &bal); err != nil {
		utils.Logger.WithError(err).Warn("Balance fetch failed")
		return nil
	}
	return &bal
}

// CreateOnboardingSession asks the backend for a fresh Stripe onboarding
// URL. Unlike the status calls this returns errors: the Coordinator needs
// to distinguish "could not start" from "started".
func (c *StatusClient) CreateOnboardingSession(ctx context.Context) (string, error) {
	var resp struct {
		OnboardingURL string `json:"onboarding_url"`
	}
	if err := c.getJSON(ctx, routes.HelperStripeConnectFlowURL, &resp); err != nil {
		return "", fmt.Errorf("could not create onboarding session: %w", err)
	}
	if resp.OnboardingURL == "" {
		return "", fmt.Errorf("backend returned an empty onboarding URL")
	}
	return resp.OnboardingURL, nil
}

func (c *StatusClient) getJSON(ctx context.Context, route string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, route)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
