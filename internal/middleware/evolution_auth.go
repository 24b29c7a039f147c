package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

// RequireBearerToken rejects requests whose "Authorization: Bearer" token does
// not equal apiKey.
func RequireBearerToken(apiKey string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, keyauth.ErrMissingOrMalformedAPIKey) && c.Get(fiber.HeaderAuthorization) == "" {
				slog.Warn("webhook_unauthorized_access", "provider", "evolution", "path", c.Path())
				return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
			}
			slog.Warn("webhook_invalid_token", "provider", "evolution", "path", c.Path())
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		},
	})
}
