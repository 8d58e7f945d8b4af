package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a recipient then fires the transfer", func(t *testing.T) {
		var gotAuth string
		var transferReq map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			switch r.URL.Path {
			case "/transferrecipient":
				json.NewEncoder(w).Encode(map[string]interface{}{
					"status": true,
					"data":   map[string]interface{}{"recipient_code": "RCP_123"},
				})
			case "/transfer":
				json.NewDecoder(r.Body).Decode(&transferReq)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"status": true,
					"data":   map[string]interface{}{"reference": transferReq["reference"], "status": "pending"},
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := NewClient("sk_test", WithBaseURL(server.URL))
		ref, err := client.InitiateTransfer(ctx, 4000, "058", "0123456789", "xfer-1")
		require.NoError(t, err)
		assert.Equal(t, "xfer-1", ref)
		assert.Equal(t, "Bearer sk_test", gotAuth)
		assert.Equal(t, "RCP_123", transferReq["recipient"])
		assert.Equal(t, float64(4000), transferReq["amount"])
	})

	t.Run("provider rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  false,
				"message": "insufficient provider balance",
			})
		}))
		defer server.Close()

		client := NewClient("sk_test", WithBaseURL(server.URL))
		_, err := client.InitiateTransfer(ctx, 4000, "058", "0123456789", "xfer-2")
		assert.ErrorIs(t, err, ErrTransferRejected)
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient("sk_test", WithBaseURL(server.URL))
		_, err := client.InitiateTransfer(ctx, 4000, "058", "0123456789", "xfer-3")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("unreachable host maps to unavailable", func(t *testing.T) {
		client := NewClient("sk_test", WithBaseURL("http://127.0.0.1:1"))
		_, err := client.InitiateTransfer(ctx, 4000, "058", "0123456789", "xfer-4")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestResolveAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the resolved name", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bank/resolve", r.URL.Path)
			assert.Equal(t, "0123456789", r.URL.Query().Get("account_number"))
			assert.Equal(t, "058", r.URL.Query().Get("bank_code"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]interface{}{
					"account_name":   "ADA OBI",
					"account_number": "0123456789",
				},
			})
		}))
		defer server.Close()

		client := NewClient("sk_test", WithBaseURL(server.URL))
		resolved, err := client.ResolveAccount(ctx, "0123456789", "058")
		require.NoError(t, err)
		assert.Equal(t, "ADA OBI", resolved.AccountName)
		assert.Equal(t, "0123456789", resolved.AccountNumber)
		assert.Equal(t, "058", resolved.BankCode)
	})

	t.Run("unresolvable account", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  false,
				"message": "could not resolve account name",
			})
		}))
		defer server.Close()

		client := NewClient("sk_test", WithBaseURL(server.URL))
		_, err := client.ResolveAccount(ctx, "0000000000", "058")
		assert.ErrorIs(t, err, ErrResolutionFailed)
	})
}

func TestListBanks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bank", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": []map[string]string{
				{"name": "Guaranty Trust Bank", "code": "058"},
				{"name": "Zenith Bank", "code": "057"},
			},
		})
	}))
	defer server.Close()

	client := NewClient("sk_test", WithBaseURL(server.URL))
	banks, err := client.ListBanks(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "058", banks[0].Code)
}
