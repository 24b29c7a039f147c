package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName        = "Sistema SDR Multi-Agentes"
	healthCheckTimeout = 5 * time.Second
)

// Check results
const (
	checkOK            = "ok"
	checkError         = "error"
	checkConfigured    = "configured"
	checkNotConfigured = "not_configured"
	checkDisabled      = "disabled"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GatewayStatus reports the messaging gateway connection state.
type GatewayStatus interface {
	Status(ctx context.Context) (string, error)
}

// PendingCounter reports buffered sessions.
type PendingCounter interface {
	Pending() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version     string
	Environment string

	DB                  Pinger
	Gateway             GatewayStatus
	Buffer              PendingCounter
	OpenAIConfigured    bool
	KnowledgeConfigured bool
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"service":     serviceName,
		"version":     h.Version,
		"environment": h.Environment,
	})
}

// Detailed probes the database and the gateway concurrently. Any failure marks
// the service as degraded; the response is still 200 so monitors can read it.
func (h *HealthHandler) Detailed(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	dbCheck, gatewayCheck := checkOK, checkOK
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.DB.Ping(gctx); err != nil {
			slog.Error("database_health_check_failed", "error", err)
			dbCheck = checkError
		}
		return nil
	})
	g.Go(func() error {
		state, err := h.Gateway.Status(gctx)
		if err != nil {
			slog.Error("gateway_health_check_failed", "error", err)
			gatewayCheck = checkError
			return nil
		}
		gatewayCheck = state
		return nil
	})
	_ = g.Wait()

	status := "ok"
	if dbCheck == checkError || gatewayCheck == checkError {
		status = "degraded"
	}

	openAICheck := checkConfigured
	if !h.OpenAIConfigured {
		openAICheck = checkNotConfigured
		status = "degraded"
	}

	knowledgeCheck := checkConfigured
	if !h.KnowledgeConfigured {
		knowledgeCheck = checkDisabled
	}

	return c.JSON(fiber.Map{
		"status":      status,
		"service":     serviceName,
		"version":     h.Version,
		"environment": h.Environment,
		"checks": fiber.Map{
			"database":       dbCheck,
			"gateway":        gatewayCheck,
			"openai":         openAICheck,
			"knowledge_base": knowledgeCheck,
		},
		"buffered_sessions": h.Buffer.Pending(),
	})
}
