package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lemans-dev/sdr-whatsapp/internal/processor"
)

// MessageProcessor is implemented by *processor.Processor.
type MessageProcessor interface {
	HandleEvent(ctx context.Context, evt *processor.EvolutionWebhook) (processor.Result, error)
	HandleText(ctx context.Context, sessionID, text string) (processor.Result, error)
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	processor MessageProcessor
	instance  string
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(p MessageProcessor, instance string) *WhatsAppHandler {
	return &WhatsAppHandler{processor: p, instance: instance}
}

// HandleEvolution acknowledges an Evolution API event. Processing continues in
// the background once the session's buffer flushes.
func (h *WhatsAppHandler) HandleEvolution(c *fiber.Ctx) error {
	var payload processor.EvolutionWebhook
	if err := c.BodyParser(&payload); err != nil {
		slog.Warn("webhook_invalid_payload", "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "Invalid webhook payload")
	}

	res, err := h.processor.HandleEvent(c.UserContext(), &payload)
	if err != nil {
		return webhookError(err)
	}
	return c.JSON(res)
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid        string `form:"MessageSid"`
	AccountSid        string `form:"AccountSid"`
	From              string `form:"From"` // WhatsApp number (whatsapp:+5519999999999)
	To                string `form:"To"`   // Your Twilio number
	Body              string `form:"Body"` // Message text
	ProfileName       string `form:"ProfileName"`
	NumMedia          string `form:"NumMedia"`
	MediaUrl0         string `form:"MediaUrl0"`
	MediaContentType0 string `form:"MediaContentType0"`
}

// SessionID strips the channel prefix and the plus sign from From.
func (p TwilioWebhookPayload) SessionID() string {
	from := strings.TrimPrefix(p.From, "whatsapp:")
	return strings.TrimPrefix(from, "+")
}

// Text returns Body, or a placeholder when the message only carries media.
func (p TwilioWebhookPayload) Text() string {
	if strings.TrimSpace(p.Body) != "" {
		return p.Body
	}
	if n, _ := strconv.Atoi(p.NumMedia); n == 0 {
		return ""
	}
	if strings.HasPrefix(p.MediaContentType0, "audio/") {
		return processor.PlaceholderAudio
	}
	return processor.PlaceholderMedia
}

// HandleTwilio processes incoming Twilio WhatsApp messages. Twilio expects
// TwiML back; an empty response sends nothing to the user.
func (h *WhatsAppHandler) HandleTwilio(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		slog.Warn("webhook_invalid_payload", "provider", "twilio", "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "Invalid webhook payload")
	}

	slog.Info("webhook_received", "provider", "twilio", "message_sid", payload.MessageSid, "num_media", payload.NumMedia)

	if _, err := h.processor.HandleText(c.UserContext(), payload.SessionID(), payload.Text()); err != nil {
		return webhookError(err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXML)
	return c.SendString("<Response></Response>")
}

// HandleTest reports that the webhook is reachable.
func (h *WhatsAppHandler) HandleTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"message":  "Webhook endpoint is accessible",
		"instance": h.instance,
	})
}

func webhookError(err error) error {
	if errors.Is(err, processor.ErrMissingSession) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session ID")
	}
	slog.Error("webhook_processing_error", "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
}
