package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/favorapp/payments-service/internal/utils"
)

type Config struct {
	AppName         string
	AppPort         string
	AppUrl          string
	UniqueRunNumber string
	UniqueRunnerID  string

	DBUrl               string
	StripeSecretKey     string
	StripeWebhookSecret string
	SendgridAPIKey      string
	SendgridFromEmail   string
	RSAPublicKey        *rsa.PublicKey

	LDFlag_PrefillStripeExpressKYC      bool
	LDFlag_AllowOOSSetupFlow            bool
	LDFlag_SeedDbWithTestAccounts       bool
	LDFlag_DynamicStripeWebhookEndpoint bool
	LDFlag_CORSHighSecurity             bool
}

const LDConnectionTimeout = 5 * time.Second

// AppName is overridden via ldflags at build time.
var AppName string

func LoadConfig() *Config {
	//----------------------------------------------------------------------
	// Check for required ldflags
	//----------------------------------------------------------------------
	if AppName == "" {
		utils.Logger.Fatal("AppName was not overridden with ldflags at build time (or is empty)")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	//----------------------------------------------------------------------
	// Load environment variables.
	//----------------------------------------------------------------------
	appUrl := requireEnv("APP_URL_FROM_ANYWHERE")
	appPort := requireEnv("APP_PORT")
	uniqueRunnerID := requireEnv("UNIQUE_RUNNER_ID")
	uniqueRunNumber := requireEnv("UNIQUE_RUN_NUMBER")

	utils.Logger.Debugf("App can be accessed at: %s", appUrl)

	dbURL := requireEnv("DB_URL")
	stripeSecretKey := requireEnv("STRIPE_SECRET_KEY")
	sendgridAPIKey := requireEnv("SENDGRID_API_KEY")
	sendgridFromEmail := requireEnv("SENDGRID_FROM_EMAIL")
	ldSDKKey := requireEnv("LD_SDK_KEY")

	//----------------------------------------------------------------------
	// RSA public key for JWT validation (base64-encoded PEM). Tokens are
	// minted by the auth service; this service only verifies them.
	//----------------------------------------------------------------------
	publicKeyPEM, err := base64.StdEncoding.DecodeString(requireEnv("RSA_PUBLIC_KEY_BASE64"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 public key")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	//----------------------------------------------------------------------
	// Initialize the LaunchDarkly client and fetch feature flags.
	//----------------------------------------------------------------------
	ldClient, err := ld.MakeClient(ldSDKKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	context := ldcontext.NewWithKind("service", AppName)

	prefillStripeExpressKyc := boolFlag(ldClient, context, "prefill_stripe_express_kyc")
	allowOOSSetupFlow := boolFlag(ldClient, context, "allow_oos_setup_flow")
	seedTestAccounts := boolFlag(ldClient, context, "seed_db_with_test_accounts")
	dynamicStripeWebhook := boolFlag(ldClient, context, "dynamic_stripe_webhook_endpoint")
	corsHighSecurity := boolFlag(ldClient, context, "cors_high_security")

	var stripeWebhookSecret string
	if !dynamicStripeWebhook {
		stripeWebhookSecret = requireEnv("STRIPE_WEBHOOK_SECRET")
	}

	return &Config{
		AppName:         AppName,
		AppPort:         appPort,
		AppUrl:          appUrl,
		UniqueRunNumber: uniqueRunNumber,
		UniqueRunnerID:  uniqueRunnerID,

		DBUrl:               dbURL,
		StripeSecretKey:     stripeSecretKey,
		StripeWebhookSecret: stripeWebhookSecret,
		SendgridAPIKey:      sendgridAPIKey,
		SendgridFromEmail:   sendgridFromEmail,
		RSAPublicKey:        publicKey,

		LDFlag_PrefillStripeExpressKYC:      prefillStripeExpressKyc,
		LDFlag_AllowOOSSetupFlow:            allowOOSSetupFlow,
		LDFlag_SeedDbWithTestAccounts:       seedTestAccounts,
		LDFlag_DynamicStripeWebhookEndpoint: dynamicStripeWebhook,
		LDFlag_CORSHighSecurity:             corsHighSecurity,
	}
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func boolFlag(client *ld.LDClient, ctx ldcontext.Context, name string) bool {
	val, err := client.BoolVariation(name, ctx, false)
	if err != nil {
		client.Close()
		utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", name)
	}
	utils.Logger.Debugf("%s flag: %t", name, val)
	return val
}
