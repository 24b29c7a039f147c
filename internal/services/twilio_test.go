package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
)

type fakeTwilio struct {
	sent    []*twilioApi.CreateMessageParams
	sendErr error
	errCode *int
	status  *string
}

func (f *fakeTwilio) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, params)
	sid := "SM123"
	msg := "blocked"
	return &twilioApi.ApiV2010Message{Sid: &sid, ErrorCode: f.errCode, ErrorMessage: &msg}, nil
}

func (f *fakeTwilio) FetchAccount(sid string) (*twilioApi.ApiV2010Account, error) {
	return &twilioApi.ApiV2010Account{Sid: &sid, Status: f.status}, nil
}

func newFakeTwilioGateway(f *fakeTwilio) *TwilioGateway {
	return newTwilioGateway(f, config.TwilioConfig{
		AccountSID:   "AC123",
		AuthToken:    "token",
		WhatsAppFrom: "+14155238886",
	})
}

func TestWhatsAppAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+5519999999999", whatsappAddress("5519999999999"))
	assert.Equal(t, "whatsapp:+5519999999999", whatsappAddress("+5519999999999"))
	assert.Equal(t, "whatsapp:+1415", whatsappAddress("whatsapp:+1415"))
}

func TestTwilioSendText(t *testing.T) {
	f := &fakeTwilio{}
	gw := newFakeTwilioGateway(f)

	require.NoError(t, gw.SendText(context.Background(), "5519999999999", "Olá!"))
	require.Len(t, f.sent, 1)
	p := f.sent[0]
	assert.Equal(t, "whatsapp:+14155238886", *p.From)
	assert.Equal(t, "whatsapp:+5519999999999", *p.To)
	assert.Equal(t, "Olá!", *p.Body)
}

func TestTwilioSendMedia(t *testing.T) {
	f := &fakeTwilio{}
	gw := newFakeTwilioGateway(f)

	require.NoError(t, gw.SendMedia(context.Background(), "5519", "https://cdn.example.com/a.jpg", ""))
	p := f.sent[0]
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, *p.MediaUrl)
	assert.Nil(t, p.Body)
}

func TestTwilioSendErrors(t *testing.T) {
	code := 63016
	tests := []struct {
		name string
		fake *fakeTwilio
		is   error
	}{
		{"transport", &fakeTwilio{sendErr: errors.New("dial tcp: timeout")}, nil},
		{"error code", &fakeTwilio{errCode: &code}, ErrGatewayStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newFakeTwilioGateway(tt.fake).SendText(context.Background(), "5519", "oi")
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestTwilioMultipleMediaCapped(t *testing.T) {
	f := &fakeTwilio{}
	gw := newFakeTwilioGateway(f)

	require.NoError(t, gw.SendMultipleMedia(context.Background(), "5519", []string{"1", "2", "3", "4", "5", "6"}))
	assert.Len(t, f.sent, MaxMediaPerBatch)
}

func TestTwilioStatus(t *testing.T) {
	active := "active"
	state, err := newFakeTwilioGateway(&fakeTwilio{status: &active}).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "active", state)

	state, err = newFakeTwilioGateway(&fakeTwilio{}).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unknown", state)
}

func TestNewGatewayRejectsUnknownProvider(t *testing.T) {
	_, err := NewGateway(config.GatewayConfig{Provider: "telegram"})
	assert.Error(t, err)

	gw, err := NewGateway(config.GatewayConfig{Provider: config.ProviderEvolution})
	require.NoError(t, err)
	assert.IsType(t, &EvolutionClient{}, gw)

	_, err = NewGateway(config.GatewayConfig{Provider: config.ProviderTwilio})
	assert.Error(t, err)
}
