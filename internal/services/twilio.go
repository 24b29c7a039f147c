package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
)

// twilioAPI is the subset of the Twilio REST client the gateway uses.
type twilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
	FetchAccount(sid string) (*twilioApi.ApiV2010Account, error)
}

// TwilioGateway sends WhatsApp messages through Twilio's Messages API.
type TwilioGateway struct {
	api        twilioAPI
	accountSID string
	from       string // Your Twilio WhatsApp number
}

// NewTwilioGateway creates a Twilio-backed gateway.
func NewTwilioGateway(cfg config.TwilioConfig) (*TwilioGateway, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.WhatsAppFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return newTwilioGateway(client.Api, cfg), nil
}

func newTwilioGateway(api twilioAPI, cfg config.TwilioConfig) *TwilioGateway {
	return &TwilioGateway{
		api:        api,
		accountSID: cfg.AccountSID,
		from:       whatsappAddress(cfg.WhatsAppFrom),
	}
}

// whatsappAddress normalises a phone number into Twilio's "whatsapp:+<digits>" form.
func whatsappAddress(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return "whatsapp:" + phone
}

// SendText sends a WhatsApp text message via Twilio
func (t *TwilioGateway) SendText(ctx context.Context, to, text string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(text)
	return t.send(ctx, to, params)
}

// SendMedia sends one image with an optional caption as the message body.
func (t *TwilioGateway) SendMedia(ctx context.Context, to, mediaURL, caption string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetMediaUrl([]string{mediaURL})
	if caption != "" {
		params.SetBody(caption)
	}
	return t.send(ctx, to, params)
}

// SendMultipleMedia sends at most MaxMediaPerBatch media in sequence.
func (t *TwilioGateway) SendMultipleMedia(ctx context.Context, to string, mediaURLs []string) error {
	return sendBatch(ctx, t, to, mediaURLs)
}

// Status returns the Twilio account status ("active", "suspended", "closed").
func (t *TwilioGateway) Status(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	acct, err := t.api.FetchAccount(t.accountSID)
	if err != nil {
		return "", fmt.Errorf("twilio fetch account: %w", err)
	}
	if acct.Status == nil {
		return "unknown", nil
	}
	return *acct.Status, nil
}

func (t *TwilioGateway) send(ctx context.Context, to string, params *twilioApi.CreateMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params.SetFrom(t.from)
	params.SetTo(whatsappAddress(to))

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		slog.Error("message_send_failed", "provider", config.ProviderTwilio, "phone", to, "error", err)
		return err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("%w: twilio error %d: %s", ErrGatewayStatus, *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Info("message_sent", "provider", config.ProviderTwilio, "phone", to, "sid", sid)
	return nil
}
