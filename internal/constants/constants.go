package constants

const (
	// Metadata keys stamped on every Stripe object this service creates, so
	// webhook handlers can tell their own objects apart from other deploys
	// sharing the same Stripe test account.
	WebhookMetadataGeneratedByKey = "generated_by"
	WebhookMetadataAccountTypeKey = "account_type"

	// HelperAccountType tags Stripe objects belonging to helper accounts.
	HelperAccountType = "helper"

	// PayoutDescriptionPrefix appears on Stripe transfer descriptions.
	PayoutDescriptionPrefix = "FavorApp tip payout"

	// WebhookMetadataPayoutIDKey carries the internal payout ID on transfers
	// so webhook events can be traced back to their TipPayout record.
	WebhookMetadataPayoutIDKey = "payout_id"

	// Internal failure reasons for payouts that never reached Stripe.
	ReasonHelperNotFound            = "helper_not_found"
	ReasonMissingStripeID           = "missing_stripe_connect_account_id"
	ReasonAccountPayoutsDisabled    = "account_payouts_disabled"
	ReasonUnknownStripeAccountError = "unknown_stripe_account_error"
	ReasonUnknownTransferError      = "unknown_stripe_transfer_error"

	StripeCapabilityTransfers = "transfers"

	StripeExpressDashboardURL = "https://connect.stripe.com/express_login"

	FinanceTeamName  = "FavorApp Finance"
	FinanceTeamEmail = "finance@favorapp.example.com"

	EmailSubjectPayoutFailureActionRequired = "Action Required: Your Tip Payout Failed"
	EmailSubjectPayoutFailurePlatformIssue  = "URGENT: Platform Tip Payout Failure (Helper %s)"
)
