package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"testing"

	"kobo/internal/models"
	"kobo/internal/repositories/ledgertest"
	"kobo/internal/services/idempotency"
	"kobo/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "sk_test_webhook"

func newWebhookApp(t *testing.T) (*fiber.App, *ledgertest.Ledger, *ledgertest.Users) {
	t.Helper()
	repo := ledgertest.NewLedger()
	users := ledgertest.NewUsers()
	svc := settlement.NewService(repo, users, idempotency.NewGuard(repo), nil, webhookSecret)

	app := fiber.New()
	app.Post("/webhook/paystack", NewWebhookHandler(svc).HandlePaystack)
	return app, repo, users
}

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandlePaystack(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"dep-1","amount":5000,"currency":"NGN","customer":{"email":"ada@example.com"}}}`)

	t.Run("rejects a bad signature with 400", func(t *testing.T) {
		app, repo, _ := newWebhookApp(t)

		req := httptest.NewRequest("POST", "/webhook/paystack", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, "not-a-signature")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, 0, repo.WebhookEventCount())
	})

	t.Run("applies a signed deposit event", func(t *testing.T) {
		app, repo, users := newWebhookApp(t)
		require.NoError(t, users.Create(&models.User{Email: "ada@example.com"}))

		req := httptest.NewRequest("POST", "/webhook/paystack", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, signBody(body))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(payload), settlement.AckSuccess)

		wallet, err := repo.GetWalletByUserID(1)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), wallet.BalanceKobo)
	})

	t.Run("rejects malformed payloads with 400", func(t *testing.T) {
		app, _, _ := newWebhookApp(t)
		garbage := []byte(`{"event":`)

		req := httptest.NewRequest("POST", "/webhook/paystack", bytes.NewReader(garbage))
		req.Header.Set(SignatureHeader, signBody(garbage))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
