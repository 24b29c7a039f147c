// Package processor turns inbound WhatsApp events into buffered agent turns
// and delivers the replies.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lemans-dev/sdr-whatsapp/internal/buffer"
	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/services"
)

// ErrMissingSession is returned when the event has no sender to reply to.
var ErrMissingSession = errors.New("session id not found")

// Result statuses and reasons
const (
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"

	ReasonUnsupportedEvent = "event_type_not_supported"
	ReasonFromMe           = "from_me"
	ReasonNoText           = "no_text_extracted"
)

// Result is the acknowledgement returned to the webhook caller.
type Result struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Router produces the reply for a combined message. *agents.Supervisor implements it.
type Router interface {
	RouteAndRespond(ctx context.Context, sessionID, msg string) (string, error)
}

// Processor is safe for concurrent use.
type Processor struct {
	router  Router
	gateway services.Gateway
	buffer  *buffer.Buffer
	apology string
}

func New(router Router, gateway services.Gateway, buf *buffer.Buffer, company config.CompanyConfig) *Processor {
	return &Processor{
		router:  router,
		gateway: gateway,
		buffer:  buf,
		apology: fmt.Sprintf("Desculpe, tive um problema técnico. 😔\n"+
			"Tente novamente em alguns instantes ou entre em contato diretamente pelo %s.", company.ContactPhone),
	}
}

// HandleEvent validates an Evolution webhook and buffers its text.
func (p *Processor) HandleEvent(ctx context.Context, evt *EvolutionWebhook) (Result, error) {
	slog.Info("webhook_received",
		"event", evt.Event,
		"instance", evt.Instance,
		"message_type", evt.Data.MessageType)

	if evt.Event != EventMessagesUpsert {
		slog.Debug("webhook_event_ignored", "event", evt.Event)
		return Result{Status: StatusIgnored, Reason: ReasonUnsupportedEvent}, nil
	}

	if evt.Data.Key.FromMe {
		return Result{Status: StatusIgnored, Reason: ReasonFromMe}, nil
	}

	sessionID, _, _ := strings.Cut(evt.Data.Key.RemoteJID, "@")
	if sessionID == "" {
		slog.Error("webhook_invalid_session_id", "remote_jid", evt.Data.Key.RemoteJID)
		return Result{}, ErrMissingSession
	}

	slog.Info("processing_message", "session_id", sessionID, "message_type", evt.Data.MessageType)

	text := ExtractText(evt.Data.MessageType, evt.Data.Message)
	return p.HandleText(ctx, sessionID, text)
}

// HandleText buffers already extracted text for sessionID.
func (p *Processor) HandleText(_ context.Context, sessionID, text string) (Result, error) {
	if sessionID == "" {
		return Result{}, ErrMissingSession
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("no_text_extracted", "session_id", sessionID)
		return Result{Status: StatusIgnored, Reason: ReasonNoText, SessionID: sessionID}, nil
	}

	p.buffer.Add(sessionID, text, p.ProcessBuffered)
	return Result{Status: StatusAccepted, SessionID: sessionID}, nil
}

// ExtractText returns the text of a message, a placeholder for audio and
// media, or "" for anything else.
func ExtractText(messageType string, msg MessageContent) string {
	switch messageType {
	case TypeConversation, TypeExtendedText:
		if msg.Conversation != "" {
			return msg.Conversation
		}
		if msg.ExtendedTextMessage != nil {
			return msg.ExtendedTextMessage.Text
		}
		return ""
	case TypeAudio:
		slog.Info("audio_message_received")
		return PlaceholderAudio
	case TypeImage, TypeDocument:
		slog.Info("media_message_received", "message_type", messageType)
		return PlaceholderMedia
	default:
		return ""
	}
}

// ProcessBuffered answers one combined message. Any failure is reported to the
// user with an apology; a failed apology is only logged.
func (p *Processor) ProcessBuffered(ctx context.Context, sessionID, text string) error {
	slog.Info("processing_buffered_message", "session_id", sessionID, "message_length", len(text))

	if err := p.respond(ctx, sessionID, text); err != nil {
		slog.Error("buffered_message_processing_error", "session_id", sessionID, "error", err)
		p.sendApology(ctx, sessionID)
	}
	return nil
}

func (p *Processor) respond(ctx context.Context, sessionID, text string) error {
	reply, err := p.router.RouteAndRespond(ctx, sessionID, text)
	if err != nil {
		return err
	}
	if strings.TrimSpace(reply) == "" {
		slog.Warn("empty_reply_skipped", "session_id", sessionID)
		return nil
	}
	if err := p.gateway.SendText(ctx, sessionID, reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	slog.Info("response_sent", "session_id", sessionID, "response_length", len(reply))
	return nil
}

func (p *Processor) sendApology(ctx context.Context, sessionID string) {
	if err := p.gateway.SendText(ctx, sessionID, p.apology); err != nil {
		slog.Error("error_message_send_failed", "session_id", sessionID, "error", err)
	}
}
