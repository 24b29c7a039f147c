package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/handlers"
	"github.com/lemans-dev/sdr-whatsapp/internal/processor"
)

type acceptAll struct{}

func (acceptAll) HandleEvent(context.Context, *processor.EvolutionWebhook) (processor.Result, error) {
	return processor.Result{Status: processor.StatusAccepted, SessionID: "5519"}, nil
}

func (acceptAll) HandleText(_ context.Context, sessionID, _ string) (processor.Result, error) {
	return processor.Result{Status: processor.StatusAccepted, SessionID: sessionID}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type okGateway struct{}

func (okGateway) Status(context.Context) (string, error) { return "open", nil }

type noPending struct{}

func (noPending) Pending() int { return 0 }

func newTestConfig(env string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: env},
		Gateway: config.GatewayConfig{
			Evolution: config.EvolutionConfig{APIKey: "evo-secret", Instance: "lemans"},
			Twilio:    config.TwilioConfig{AuthToken: "twilio-token"},
		},
	}
}

func newTestRouter(cfg *config.Config) *fiber.App {
	app := NewApp("test", false)
	health := &handlers.HealthHandler{
		Version: "test", Environment: cfg.Server.Env,
		DB: okPinger{}, Gateway: okGateway{}, Buffer: noPending{}, OpenAIConfigured: true,
	}
	SetupRoutes(app, cfg, handlers.NewWhatsAppHandler(acceptAll{}, cfg.Gateway.Evolution.Instance), health)
	return app
}

const evolutionBody = `{"event":"messages.upsert","instance":"lemans","data":{"key":{"remoteJid":"5519@s.whatsapp.net"},"message":{"conversation":"oi"},"messageType":"conversation"}}`

func evolutionRequest(auth string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/evolution", strings.NewReader(evolutionBody))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func TestEvolutionAuthInProduction(t *testing.T) {
	app := newTestRouter(newTestConfig("production"))

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic evo-secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer evo-secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(evolutionRequest(tt.auth))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestEvolutionAuthSkippedOutsideProduction(t *testing.T) {
	app := newTestRouter(newTestConfig("development"))

	resp, err := app.Test(evolutionRequest(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidationCanBeDisabled(t *testing.T) {
	cfg := newTestConfig("production")
	cfg.DisableWebhookValidation = true
	app := newTestRouter(cfg)

	resp, err := app.Test(evolutionRequest(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// twilioSignature follows Twilio's scheme: HMAC-SHA1 over the URL followed by
// the sorted form parameters.
func twilioSignature(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := fullURL
	for _, k := range keys {
		data += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestTwilioSignatureInProduction(t *testing.T) {
	app := newTestRouter(newTestConfig("production"))
	form := url.Values{"From": {"whatsapp:+5519"}, "Body": {"oi"}, "MessageSid": {"SM1"}}

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "bm9wZQ==", http.StatusUnauthorized},
		{"valid", twilioSignature("twilio-token", "http://example.com/webhook/twilio", form), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/webhook/twilio", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.signature != "" {
				req.Header.Set("X-Twilio-Signature", tt.signature)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	app := newTestRouter(newTestConfig("production"))

	for _, path := range []string{"/", "/health", "/health/detailed", "/webhook/test"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
