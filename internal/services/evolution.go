package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
)

// fiber.Agent takes no context: ctx is checked before a request starts and
// its deadline caps the request timeout, but a request in flight is not aborted.
const (
	evolutionSendTimeout   = 30 * time.Second
	evolutionStatusTimeout = 10 * time.Second
)

// EvolutionClient talks to the Evolution API WhatsApp gateway.
type EvolutionClient struct {
	baseURL  string
	instance string
	apiKey   string
	limiter  *rate.Limiter
}

// NewEvolutionClient creates a client for one Evolution instance.
func NewEvolutionClient(cfg config.EvolutionConfig) *EvolutionClient {
	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	return &EvolutionClient{
		baseURL:  cfg.URL,
		instance: cfg.Instance,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendMediaRequest struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
}

type connectionStateResponse struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

// SendText sends a text message to phone (country code included, no '+').
func (e *EvolutionClient) SendText(ctx context.Context, phone, text string) error {
	url := fmt.Sprintf("%s/message/sendText/%s", e.baseURL, e.instance)
	code, err := e.post(ctx, url, sendTextRequest{Number: phone, Text: text})
	if err != nil {
		slog.Error("message_send_failed", "phone", phone, "error", err)
		return err
	}

	slog.Info("message_sent", "phone", phone, "status", code)
	return nil
}

// SendMedia sends an image by URL with an optional caption.
func (e *EvolutionClient) SendMedia(ctx context.Context, phone, mediaURL, caption string) error {
	url := fmt.Sprintf("%s/message/sendMedia/%s", e.baseURL, e.instance)
	payload := sendMediaRequest{
		Number:    phone,
		MediaType: "image",
		Media:     mediaURL,
		Caption:   caption,
	}
	if _, err := e.post(ctx, url, payload); err != nil {
		slog.Error("media_send_failed", "phone", phone, "media_url", mediaURL, "error", err)
		return err
	}

	slog.Info("media_sent", "phone", phone, "media_url", mediaURL)
	return nil
}

// SendMultipleMedia sends at most MaxMediaPerBatch media in sequence.
func (e *EvolutionClient) SendMultipleMedia(ctx context.Context, phone string, mediaURLs []string) error {
	return sendBatch(ctx, e, phone, mediaURLs)
}

// Status returns the instance connection state ("open", "close", "connecting").
func (e *EvolutionClient) Status(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/instance/connectionState/%s", e.baseURL, e.instance)
	agent := fiber.Get(url).
		Set("apikey", e.apiKey).
		Timeout(requestTimeout(ctx, evolutionStatusTimeout))

	code, body, errs := agent.Bytes()
	if err := errors.Join(errs...); err != nil {
		return "", fmt.Errorf("evolution connection state: %w", err)
	}
	if code < 200 || code >= 300 {
		return "", fmt.Errorf("%w: %d %s", ErrGatewayStatus, code, truncate(string(body), 200))
	}

	var resp connectionStateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode connection state: %w", err)
	}
	return resp.Instance.State, nil
}

func (e *EvolutionClient) post(ctx context.Context, url string, payload any) (int, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	agent := fiber.Post(url).
		Set("apikey", e.apiKey).
		Timeout(requestTimeout(ctx, evolutionSendTimeout)).
		JSON(payload)

	code, body, errs := agent.Bytes()
	if err := errors.Join(errs...); err != nil {
		return 0, fmt.Errorf("evolution request failed: %w", err)
	}
	if code < 200 || code >= 300 {
		return code, fmt.Errorf("%w: %d %s", ErrGatewayStatus, code, truncate(string(body), 200))
	}
	return code, nil
}

// requestTimeout returns limit, or less when ctx expires sooner.
func requestTimeout(ctx context.Context, limit time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return limit
	}
	if left := time.Until(deadline); left < limit {
		return left
	}
	return limit
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
