package storage

import (
	"context"
	"errors"

	"github.com/lemans-dev/sdr-whatsapp/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations used by the agents.
type Store interface {
	// Chat history operations
	SaveChatMessage(ctx context.Context, msg *models.ChatMessage) error
	// GetRecentMessages returns up to limit messages for the session in chronological order.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*models.ChatMessage, error)

	// Lead operations
	UpsertLead(ctx context.Context, update *models.LeadUpdate) (*models.Lead, error)
	GetLeadByPhone(ctx context.Context, phone string) (*models.Lead, error)

	Ping(ctx context.Context) error
}

// KnowledgeStore is the vector-similarity side of persistence.
type KnowledgeStore interface {
	UpsertKnowledgeDocuments(ctx context.Context, docs []*models.KnowledgeDocument) error
	// SearchKnowledge returns documents of the collection whose cosine similarity to
	// embedding exceeds threshold, most similar first.
	SearchKnowledge(ctx context.Context, collection string, embedding []float32, threshold float64, limit int) ([]*models.KnowledgeMatch, error)
}

var (
	_ Store          = (*DatabaseStore)(nil)
	_ KnowledgeStore = (*DatabaseStore)(nil)
	_ Store          = (*MemoryStore)(nil)
	_ KnowledgeStore = (*MemoryStore)(nil)
)

// reverse flips a newest-first slice into chronological order in place.
func reverse(msgs []*models.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
