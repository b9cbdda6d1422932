package routes

const (
	// Health
	Health = "/health"

	// ───────────────────────────────
	// Helper / Stripe Connect
	// ───────────────────────────────
	HelperStripeConnectFlowURL     = "/api/v1/payments/helper/stripe/connect-flow"
	HelperStripeConnectFlowReturn  = "/api/v1/payments/helper/stripe/connect-flow-return"
	HelperStripeConnectFlowRefresh = "/api/v1/payments/helper/stripe/connect-flow-refresh"
	HelperStripeAccountStatus      = "/api/v1/payments/helper/stripe/account-status"
	HelperStripeBalance            = "/api/v1/payments/helper/stripe/balance"

	// ───────────────────────────────
	// Stripe Webhook
	// ───────────────────────────────
	PaymentsStripeWebhook      = "/api/v1/payments/stripe/webhook"
	PaymentsStripeWebhookCheck = "/api/v1/payments/stripe/webhook/check"

	// ───────────────────────────────
	// Favors
	// ───────────────────────────────
	Favors        = "/api/v1/favors"
	FavorsOpen    = "/api/v1/favors/open"
	FavorApply    = "/api/v1/favors/{id}/apply"
	FavorComplete = "/api/v1/favors/{id}/complete"

	// ───────────────────────────────
	// Universal / App-links
	// ───────────────────────────────
	HelperUniversalLinkStripeConnectReturn  = "/favorhelper/stripe-connect-return"
	HelperUniversalLinkStripeConnectRefresh = "/favorhelper/stripe-connect-refresh"

	// ───────────────────────────────
	// Well-known metadata
	// ───────────────────────────────
	WellKnownAppleAppSiteAssociation = "/.well-known/apple-app-site-association"
	WellKnownAssetLinksJson          = "/.well-known/assetlinks.json"
)
