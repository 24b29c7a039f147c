package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat roles stored in chat_memory.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleFunction  = "function"
)

// ChatMessage is one append-only entry of a session's conversation history.
type ChatMessage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID string    `json:"session_id" gorm:"size:50;not null;index"` // phone number
	Role      string    `json:"role" gorm:"size:20;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	AgentName *string   `json:"agent_name,omitempty" gorm:"size:50"`
	Metadata  *string   `json:"metadata,omitempty" gorm:"type:text"` // JSON
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}

// TableName keeps the table name used by the existing deployment.
func (ChatMessage) TableName() string {
	return "chat_memory"
}

// BeforeCreate assigns the ID and timestamp when the caller left them empty.
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	m.Prepare()
	return nil
}

// Prepare fills ID and Timestamp. Stores that bypass gorm hooks call it directly.
func (m *ChatMessage) Prepare() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
}

// NewChatMessage builds a message produced by agentName. metadata may be nil.
func NewChatMessage(sessionID, role, content, agentName string, metadata map[string]any) (*ChatMessage, error) {
	msg := &ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if agentName != "" {
		msg.AgentName = &agentName
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		s := string(raw)
		msg.Metadata = &s
	}
	return msg, nil
}
