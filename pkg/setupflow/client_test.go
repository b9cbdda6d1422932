package setupflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/favorapp/payments-service/internal/routes"
)

func TestGetAccountStatusDecodesBackendResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, routes.HelperStripeAccountStatus, r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"has_account":true,"can_receive_payments":true,"account_id":"acct_42","message":"ready"}`))
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "test-token")
	status := client.GetAccountStatus(context.Background())

	require.True(t, status.HasAccount)
	require.True(t, status.CanReceivePayments)
	require.NotNil(t, status.AccountID)
	require.Equal(t, "acct_42", *status.AccountID)
	require.False(t, status.NeedsOnboarding())
}

func TestGetAccountStatusFailsClosedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "test-token")
	status := client.GetAccountStatus(context.Background())

	require.False(t, status.HasAccount)
	require.False(t, status.CanReceivePayments)
	require.NotEmpty(t, status.Message)
	require.False(t, client.CanReceivePayments(context.Background()))
}

func TestGetAccountStatusFailsClosedOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "test-token")
	status := client.GetAccountStatus(context.Background())

	require.False(t, status.CanReceivePayments)
}

func TestGetAccountStatusFailsClosedOnUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connections now refused

	client := NewStatusClient(srv.URL, "test-token")
	status := client.GetAccountStatus(context.Background())

	require.False(t, status.HasAccount)
	require.False(t, status.CanReceivePayments)
}

func TestGetBalanceReturnsNilOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "test-token")
	require.Nil(t, client.GetBalance(context.Background()))
}

func TestGetBalanceDecodesAmounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, routes.HelperStripeBalance, r.URL.Path)
		_, _ = w.Write([]byte(`{"available":12.50,"pending":3.25,"currency":"usd"}`))
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "test-token")
	bal := client.GetBalance(context.Background())

	require.NotNil(t, bal)
	require.Equal(t, 12.50, bal.Available)
	require.Equal(t, 3.25, bal.Pending)
	require.Equal(t, "usd", bal.Currency)
}

func TestCreateOnboardingSessionReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, routes.HelperStripeConnectFlowURL, r.URL.Path)
		_, _ = w.Write([]byte(`{"onboarding_url":"https://connect.stripe.com/setup/s/xyz"}`))
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "test-token")
	url, err := client.CreateOnboardingSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://connect.stripe.com/setup/s/xyz", url)
}

func TestCreateOnboardingSessionErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewStatusClient(srv.URL, "test-token")
		_, err := client.CreateOnboardingSession(context.Background())
		require.Error(t, err)
	})

	t.Run("empty URL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"onboarding_url":""}`))
		}))
		defer srv.Close()

		client := NewStatusClient(srv.URL, "test-token")
		_, err := client.CreateOnboardingSession(context.Background())
		require.Error(t, err)
	})
}
