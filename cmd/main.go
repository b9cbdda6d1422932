package main

import (
	"context"
	"net/http"
	"time"

	_ "time/tzdata" // Load timezone data

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/favorapp/payments-service/internal/app"
	"github.com/favorapp/payments-service/internal/config"
	"github.com/favorapp/payments-service/internal/controllers"
	"github.com/favorapp/payments-service/internal/middleware"
	"github.com/favorapp/payments-service/internal/repositories"
	"github.com/favorapp/payments-service/internal/routes"
	"github.com/favorapp/payments-service/internal/services"
	"github.com/favorapp/payments-service/internal/utils"
)

const corsLowSecurityAllowedOriginLocalhost = "http://localhost:3000"

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize the application:", err)
	}
	defer application.Close()

	// Repositories
	helperRepo := repositories.NewHelperRepository(application.DB)
	favorRepo := repositories.NewFavorRepository(application.DB)
	payoutRepo := repositories.NewTipPayoutRepository(application.DB)

	// Conditionally seed test accounts if the feature flag is enabled.
	if cfg.LDFlag_SeedDbWithTestAccounts {
		if err := app.SeedTestHelpers(helperRepo); err != nil {
			utils.Logger.Fatal("Failed to seed test helpers:", err)
		}
	}

	// Services
	helperStripeService := services.NewHelperStripeService(cfg, helperRepo)
	tipPayoutService := services.NewTipPayoutService(cfg, helperRepo, payoutRepo)
	favorService := services.NewFavorService(favorRepo, helperStripeService, tipPayoutService)
	stripeWebhookCheckService := services.NewStripeWebhookCheckService()

	// Controllers
	healthController := controllers.NewHealthController()
	helperStripeController := controllers.NewHelperStripeController(helperStripeService)
	favorsController := controllers.NewFavorsController(favorService)
	stripeWebhookController := controllers.NewStripeWebhookController(cfg, helperStripeService, tipPayoutService, stripeWebhookCheckService)
	helperUniversalLinksController := controllers.NewHelperUniversalLinksController(cfg.AppUrl)
	wellKnownController := controllers.NewWellKnownController()

	// Payout retries and reconciliation via cron (every 15 minutes)
	c := cron.New()
	_, schErr := c.AddFunc("*/15 * * * *", func() {
		if err := tipPayoutService.RetryDuePayouts(context.Background()); err != nil {
			utils.Logger.WithError(err).Error("Scheduled payout retry run failed")
		}
		if err := tipPayoutService.ReconcileStaleProcessing(context.Background()); err != nil {
			utils.Logger.WithError(err).Error("Scheduled payout reconciliation failed")
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule payout retry job")
	}
	c.Start()

	// Start dynamic Stripe webhooks if needed
	stripeCtx, stripeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stripeCancel()
	if err := helperStripeService.Start(stripeCtx); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to start Stripe dynamic webhooks")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = helperStripeService.Stop(stopCtx) // already logs on error
	}()

	// Router
	router := mux.NewRouter()

	// Health
	router.HandleFunc(routes.Health, healthController.HealthHandler).Methods(http.MethodGet)

	// Public universal link metadata well-known
	router.HandleFunc(routes.WellKnownAppleAppSiteAssociation, wellKnownController.AppleAppSiteAssociationHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.WellKnownAssetLinksJson, wellKnownController.AssetLinksHandler).Methods(http.MethodGet)

	// Public universal link endpoints
	router.HandleFunc(routes.HelperUniversalLinkStripeConnectReturn, helperUniversalLinksController.HelperStripeConnectReturnHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.HelperUniversalLinkStripeConnectRefresh, helperUniversalLinksController.HelperStripeConnectRefreshHandler).Methods(http.MethodGet)

	// Public stripe connect flow redirect routes
	router.HandleFunc(routes.HelperStripeConnectFlowReturn, helperStripeController.ConnectFlowReturnHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.HelperStripeConnectFlowRefresh, helperStripeController.ConnectFlowRefreshHandler).Methods(http.MethodGet)

	// Stripe webhook routes
	router.HandleFunc(routes.PaymentsStripeWebhook, stripeWebhookController.WebhookHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.PaymentsStripeWebhookCheck, stripeWebhookController.WebhookCheckHandler).Methods(http.MethodGet)

	// Protected routes (JWT middleware)
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))

	// Helper Stripe
	secured.HandleFunc(routes.HelperStripeConnectFlowURL, helperStripeController.ConnectFlowURLHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.HelperStripeAccountStatus, helperStripeController.AccountStatusHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.HelperStripeBalance, helperStripeController.BalanceHandler).Methods(http.MethodGet)

	// Favors
	secured.HandleFunc(routes.Favors, favorsController.CreateHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.FavorsOpen, favorsController.ListOpenHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.FavorApply, favorsController.ApplyHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.FavorComplete, favorsController.CompleteHandler).Methods(http.MethodPost)

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, corsLowSecurityAllowedOriginLocalhost)
	}

	// CORS config
	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Platform", "X-Device-ID", "ngrok-skip-browser-warning"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
