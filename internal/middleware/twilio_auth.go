package middleware

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature validates that the webhook request is from Twilio
func ValidateTwilioSignature(authToken string) fiber.Handler {
	validator := client.NewRequestValidator(authToken)

	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			slog.Warn("webhook_unauthorized_access", "provider", "twilio", "reason", "missing_signature")
			return fiber.NewError(fiber.StatusUnauthorized, "Missing Twilio signature")
		}

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		if !validator.Validate(getFullURL(c), formParams, signature) {
			slog.Warn("webhook_invalid_token", "provider", "twilio")
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid signature")
		}

		return c.Next()
	}
}

// getFullURL rebuilds the URL Twilio signed. Behind a TLS-terminating proxy
// the scheme comes from X-Forwarded-Proto. The path comes from the parsed URI,
// since the raw request target may already be an absolute URL.
func getFullURL(c *fiber.Ctx) string {
	protocol := c.Get(fiber.HeaderXForwardedProto)
	if protocol == "" {
		protocol = c.Protocol()
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.Hostname(), c.Request().URI().RequestURI())
}
