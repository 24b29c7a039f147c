package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/handlers"
	"github.com/lemans-dev/sdr-whatsapp/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, cfg *config.Config, whatsapp *handlers.WhatsAppHandler, health *handlers.HealthHandler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Sistema SDR Multi-Agentes",
			"version": health.Version,
			"endpoints": fiber.Map{
				"health":            "/health",
				"health_detailed":   "/health/detailed",
				"webhook_evolution": "/webhook/evolution",
				"webhook_twilio":    "/webhook/twilio",
			},
		})
	})

	app.Get("/health", health.Check)
	app.Get("/health/detailed", health.Detailed)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	webhooks.Get("/test", whatsapp.HandleTest)

	validate := cfg.Server.IsProduction() && !cfg.DisableWebhookValidation
	if !validate {
		slog.Warn("webhook_validation_disabled", "environment", cfg.Server.Env)
		webhooks.Post("/evolution", whatsapp.HandleEvolution)
		webhooks.Post("/twilio", whatsapp.HandleTwilio)
		return
	}

	webhooks.Post("/evolution", middleware.RequireBearerToken(cfg.Gateway.Evolution.APIKey), whatsapp.HandleEvolution)
	webhooks.Post("/twilio", middleware.ValidateTwilioSignature(cfg.Gateway.Twilio.AuthToken), whatsapp.HandleTwilio)
}
