package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_CanAcceptCredit(t *testing.T) {
	tests := []struct {
		name       string
		status     AccountStatus
		hasPending bool
		allowed    bool
		reason     int
	}{
		{"active account", AccountStatusActive, false, true, 0},
		{"active account with pending", AccountStatusActive, true, true, 0},
		{"blocked account", AccountStatusBlocked, false, false, ReasonAccountBlocked},
		{"suspended account", AccountStatusSuspended, false, false, ReasonAccountBlocked},
		{"processing without pending", AccountStatusProcessing, false, true, 0},
		{"processing with pending conflict", AccountStatusProcessing, true, false, ReasonPendingConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &Account{Status: tt.status}

			allowed, reason := account.CanAcceptCredit(tt.hasPending)

			assert.Equal(t, tt.allowed, allowed)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestIsOwnerID(t *testing.T) {
	assert.True(t, IsOwnerID("507f1f77bcf86cd799439011"))
	assert.True(t, IsOwnerID("507F1F77BCF86CD799439011"))
	assert.False(t, IsOwnerID("507f1f77bcf86cd79943901"), "23 characters")
	assert.False(t, IsOwnerID("507f1f77bcf86cd7994390111"), "25 characters")
	assert.False(t, IsOwnerID("507f1f77bcf86cd79943901z"), "non-hex character")
	assert.False(t, IsOwnerID("user@example.com"))
	assert.False(t, IsOwnerID(""))
}

func TestOpenAccountRequest_Validate(t *testing.T) {
	t.Run("valid request applies defaults", func(t *testing.T) {
		req := &OpenAccountRequest{OwnerID: "507f1f77bcf86cd799439011"}

		err := req.Validate()

		require.NoError(t, err)
		assert.Equal(t, CurrencyUZS, req.Currency)
		assert.Equal(t, AccountTypePersonal, req.Type)
	})

	tests := []struct {
		name     string
		req      *OpenAccountRequest
		errorMsg string
	}{
		{
			name: "explicit currency and type",
			req: &OpenAccountRequest{
				OwnerID:  "507f1f77bcf86cd799439011",
				Currency: CurrencyUSD,
				Type:     AccountTypeBusiness,
			},
		},
		{
			name:     "malformed owner id",
			req:      &OpenAccountRequest{OwnerID: "not-an-owner"},
			errorMsg: "owner id must be a 24-character hex string",
		},
		{
			name: "unsupported currency",
			req: &OpenAccountRequest{
				OwnerID:  "507f1f77bcf86cd799439011",
				Currency: "EUR",
			},
			errorMsg: "unsupported currency",
		},
		{
			name: "unsupported account type",
			req: &OpenAccountRequest{
				OwnerID: "507f1f77bcf86cd799439011",
				Type:    "corporate",
			},
			errorMsg: "unsupported account type",
		},
		{
			name: "invalid email",
			req: &OpenAccountRequest{
				OwnerID:  "507f1f77bcf86cd799439011",
				Metadata: Metadata{Email: "not-an-email"},
			},
			errorMsg: "invalid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			}
		})
	}
}
