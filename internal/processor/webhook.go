package processor

// EventMessagesUpsert is the only Evolution event that carries a new message.
const EventMessagesUpsert = "messages.upsert"

// Evolution message types
const (
	TypeConversation = "conversation"
	TypeExtendedText = "extendedTextMessage"
	TypeAudio        = "audioMessage"
	TypeImage        = "imageMessage"
	TypeDocument     = "documentMessage"
)

// Stand-ins for content we cannot read yet.
const (
	PlaceholderAudio = "[Áudio recebido - transcrição em desenvolvimento]"
	PlaceholderMedia = "[Mídia recebida - OCR em desenvolvimento]"
)

// EvolutionWebhook is the body Evolution API posts to the webhook.
type EvolutionWebhook struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     WhatsAppMessage `json:"data"`
}

type WhatsAppMessage struct {
	Key              MessageKey     `json:"key"`
	PushName         string         `json:"pushName,omitempty"`
	Message          MessageContent `json:"message"`
	MessageType      string         `json:"messageType"`
	MessageTimestamp int64          `json:"messageTimestamp"`
	InstanceID       string         `json:"instanceId,omitempty"`
}

type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// MessageContent holds the payloads we read. Media bodies are ignored.
type MessageContent struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
}

type ExtendedTextMessage struct {
	Text string `json:"text"`
}
