package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemans-dev/sdr-whatsapp/internal/processor"
)

type fakeProcessor struct {
	events []*processor.EvolutionWebhook
	texts  [][2]string
	result processor.Result
	err    error
}

func (f *fakeProcessor) HandleEvent(_ context.Context, evt *processor.EvolutionWebhook) (processor.Result, error) {
	f.events = append(f.events, evt)
	return f.result, f.err
}

func (f *fakeProcessor) HandleText(_ context.Context, sessionID, text string) (processor.Result, error) {
	f.texts = append(f.texts, [2]string{sessionID, text})
	return f.result, f.err
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHandleEvolutionAccepted(t *testing.T) {
	proc := &fakeProcessor{result: processor.Result{Status: "accepted", SessionID: "5519"}}
	app := newTestApp()
	app.Post("/webhook/evolution", NewWhatsAppHandler(proc, "lemans").HandleEvolution)

	body := `{"event":"messages.upsert","instance":"lemans","data":{"key":{"remoteJid":"5519@s.whatsapp.net","fromMe":false,"id":"ABC"},"pushName":"João","message":{"conversation":"oi"},"messageType":"conversation","messageTimestamp":1700000000}}`
	code, resp := doJSON(t, app, http.MethodPost, "/webhook/evolution", body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"status": "accepted", "session_id": "5519"}, resp)
	require.Len(t, proc.events, 1)
	assert.Equal(t, "5519@s.whatsapp.net", proc.events[0].Data.Key.RemoteJID)
	assert.Equal(t, "oi", proc.events[0].Data.Message.Conversation)
}

func TestHandleEvolutionIgnored(t *testing.T) {
	proc := &fakeProcessor{result: processor.Result{Status: "ignored", Reason: "event_type_not_supported"}}
	app := newTestApp()
	app.Post("/webhook/evolution", NewWhatsAppHandler(proc, "lemans").HandleEvolution)

	code, resp := doJSON(t, app, http.MethodPost, "/webhook/evolution", `{"event":"connection.update","instance":"lemans","data":{}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"status": "ignored", "reason": "event_type_not_supported"}, resp)
}

func TestHandleEvolutionErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{"event":`, nil, http.StatusBadRequest},
		{"missing session", `{"event":"messages.upsert"}`, processor.ErrMissingSession, http.StatusBadRequest},
		{"unexpected", `{"event":"messages.upsert"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Post("/webhook/evolution", NewWhatsAppHandler(&fakeProcessor{err: tt.err}, "lemans").HandleEvolution)

			code, resp := doJSON(t, app, http.MethodPost, "/webhook/evolution", tt.body)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestHandleTwilio(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want [2]string
	}{
		{"text", url.Values{"From": {"whatsapp:+5519999999999"}, "Body": {"Olá"}, "NumMedia": {"0"}}, [2]string{"5519999999999", "Olá"}},
		{"audio", url.Values{"From": {"whatsapp:+5519"}, "NumMedia": {"1"}, "MediaContentType0": {"audio/ogg"}}, [2]string{"5519", processor.PlaceholderAudio}},
		{"image", url.Values{"From": {"whatsapp:+5519"}, "NumMedia": {"1"}, "MediaContentType0": {"image/jpeg"}}, [2]string{"5519", processor.PlaceholderMedia}},
		{"status callback", url.Values{"From": {"whatsapp:+5519"}, "MessageStatus": {"delivered"}}, [2]string{"5519", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{result: processor.Result{Status: "accepted"}}
			app := newTestApp()
			app.Post("/webhook/twilio", NewWhatsAppHandler(proc, "").HandleTwilio)

			req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			raw, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "<Response></Response>", string(raw))
			require.Len(t, proc.texts, 1)
			assert.Equal(t, tt.want, proc.texts[0])
		})
	}
}

func TestHandleTest(t *testing.T) {
	app := newTestApp()
	app.Get("/webhook/test", NewWhatsAppHandler(&fakeProcessor{}, "lemans").HandleTest)

	code, resp := doJSON(t, app, http.MethodGet, "/webhook/test", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "lemans", resp["instance"])
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubGateway struct {
	state string
	err   error
}

func (s stubGateway) Status(context.Context) (string, error) { return s.state, s.err }

type stubPending int

func (s stubPending) Pending() int { return int(s) }

func TestHealthCheck(t *testing.T) {
	h := &HealthHandler{Version: "1.0.0", Environment: "production"}
	app := newTestApp()
	app.Get("/health", h.Check)

	code, resp := doJSON(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"status":      "ok",
		"service":     "Sistema SDR Multi-Agentes",
		"version":     "1.0.0",
		"environment": "production",
	}, resp)
}

func TestHealthDetailed(t *testing.T) {
	tests := []struct {
		name       string
		handler    *HealthHandler
		wantStatus string
		wantChecks map[string]any
	}{
		{
			name: "all ok",
			handler: &HealthHandler{
				DB: stubPinger{}, Gateway: stubGateway{state: "open"}, Buffer: stubPending(2),
				OpenAIConfigured: true, KnowledgeConfigured: true,
			},
			wantStatus: "ok",
			wantChecks: map[string]any{"database": "ok", "gateway": "open", "openai": "configured", "knowledge_base": "configured"},
		},
		{
			name: "database down",
			handler: &HealthHandler{
				DB: stubPinger{err: errors.New("refused")}, Gateway: stubGateway{state: "open"}, Buffer: stubPending(2),
				OpenAIConfigured: true,
			},
			wantStatus: "degraded",
			wantChecks: map[string]any{"database": "error", "gateway": "open", "openai": "configured", "knowledge_base": "disabled"},
		},
		{
			name: "gateway error and no key",
			handler: &HealthHandler{
				DB: stubPinger{}, Gateway: stubGateway{err: errors.New("timeout")}, Buffer: stubPending(2),
			},
			wantStatus: "degraded",
			wantChecks: map[string]any{"database": "ok", "gateway": "error", "openai": "not_configured", "knowledge_base": "disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Get("/health/detailed", tt.handler.Detailed)

			code, resp := doJSON(t, app, http.MethodGet, "/health/detailed", "")
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.wantStatus, resp["status"])
			assert.Equal(t, tt.wantChecks, resp["checks"])
			assert.EqualValues(t, 2, resp["buffered_sessions"])
		})
	}
}
