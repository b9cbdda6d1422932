package services

import (
	"sync"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/favorapp/payments-service/internal/utils"
)

// StripeWebhookCheckService captures payment_intent.created event IDs so the
// deploy-time webhook_check probe can confirm Stripe can reach this instance.
type StripeWebhookCheckService struct {
	mu     sync.Mutex
	events map[string]struct{}
}

func NewStripeWebhookCheckService() *StripeWebhookCheckService {
	return &StripeWebhookCheckService{
		events: make(map[string]struct{}),
	}
}

func (s *StripeWebhookCheckService) HandlePaymentIntentCreated(eventID string, pi *stripe.PaymentIntent) {
	s.mu.Lock()
	s.events[eventID] = struct{}{}
	s.mu.Unlock()
	utils.Logger.Infof("Captured webhook check event (payment_intent.created) with ID=%s", eventID)
}

func (s *StripeWebhookCheckService) ConsumeWebhookCheckEvent(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.events[eventID]
	if found {
		delete(s.events, eventID)
	}
	return found
}
