package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
)

// MaxMediaPerBatch caps SendMultipleMedia.
const MaxMediaPerBatch = 5

// ErrGatewayStatus is returned when the messaging gateway answers with a non-2xx status.
var ErrGatewayStatus = errors.New("gateway returned error status")

// Gateway sends WhatsApp messages to end users.
type Gateway interface {
	SendText(ctx context.Context, to, text string) error
	SendMedia(ctx context.Context, to, mediaURL, caption string) error
	SendMultipleMedia(ctx context.Context, to string, mediaURLs []string) error
	// Status reports the WhatsApp connection state of the sending instance.
	Status(ctx context.Context) (string, error)
}

// NewGateway builds the gateway selected by GATEWAY_PROVIDER.
func NewGateway(cfg config.GatewayConfig) (Gateway, error) {
	switch cfg.Provider {
	case config.ProviderEvolution:
		return NewEvolutionClient(cfg.Evolution), nil
	case config.ProviderTwilio:
		return NewTwilioGateway(cfg.Twilio)
	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", cfg.Provider)
	}
}

// sendBatch sends up to MaxMediaPerBatch items in order and stops at the first failure.
func sendBatch(ctx context.Context, g Gateway, to string, mediaURLs []string) error {
	if len(mediaURLs) > MaxMediaPerBatch {
		slog.Warn("media_batch_truncated", "phone", to, "requested", len(mediaURLs), "limit", MaxMediaPerBatch)
		mediaURLs = mediaURLs[:MaxMediaPerBatch]
	}
	for _, u := range mediaURLs {
		if err := g.SendMedia(ctx, to, u, ""); err != nil {
			return err
		}
	}
	return nil
}
