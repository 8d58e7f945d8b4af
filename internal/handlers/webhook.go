package handlers

import (
	"errors"

	"kobo/internal/services/settlement"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the provider's HMAC signature over the raw body.
const SignatureHeader = "x-paystack-signature"

type WebhookHandler struct {
	settlementService settlement.Service
}

func NewWebhookHandler(settlementService settlement.Service) *WebhookHandler {
	return &WebhookHandler{settlementService: settlementService}
}

// HandlePaystack receives provider callbacks. Signature mismatches are
// rejected with 400 and no effect; everything else is acknowledged with a
// 2xx so the provider stops retrying.
func (h *WebhookHandler) HandlePaystack(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get(SignatureHeader)

	ack, err := h.settlementService.HandleEvent(c.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrInvalidSignature):
			return utils.BadRequest(c, "invalid signature")
		case errors.Is(err, settlement.ErrMalformedEvent):
			return utils.BadRequest(c, "malformed payload")
		default:
			return utils.InternalError(c, "failed to process event")
		}
	}

	return utils.Success(c, ack)
}
