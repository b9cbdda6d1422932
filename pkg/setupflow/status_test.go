package setupflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeedsOnboardingRequiresExistingAccount(t *testing.T) {
	cases := []struct {
		name   string
		status AccountStatus
		want   bool
	}{
		{"no account yet", AccountStatus{HasAccount: false, CanReceivePayments: false}, false},
		{"account mid-verification", AccountStatus{HasAccount: true, CanReceivePayments: false}, true},
		{"account fully ready", AccountStatus{HasAccount: true, CanReceivePayments: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.status.NeedsOnboarding())
			if tc.status.NeedsOnboarding() {
				require.True(t, tc.status.HasAccount)
			}
		})
	}
}
