package storage

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lemans-dev/sdr-whatsapp/internal/models"
)

// MemoryStore holds all data in memory. It backs USE_MEMORY_STORE and the tests.
type MemoryStore struct {
	messages  map[string][]*models.ChatMessage
	leads     map[string]*models.Lead
	knowledge []*models.KnowledgeDocument

	// Mutexes for thread safety
	messageMu   sync.RWMutex
	leadMu      sync.RWMutex
	knowledgeMu sync.RWMutex

	// Counters for ID generation
	leadCounter      uint
	knowledgeCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]*models.ChatMessage),
		leads:    make(map[string]*models.Lead),
	}
}

// Chat history operations
func (m *MemoryStore) SaveChatMessage(_ context.Context, msg *models.ChatMessage) error {
	msg.Prepare()

	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	stored := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &stored)
	return nil
}

func (m *MemoryStore) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]*models.ChatMessage, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	all := m.messages[sessionID]
	sorted := make([]*models.ChatMessage, len(all))
	copy(sorted, all)
	// Stable keeps arrival order for equal timestamps.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	out := make([]*models.ChatMessage, len(sorted))
	for i, msg := range sorted {
		c := *msg
		out[i] = &c
	}
	return out, nil
}

// Lead operations
func (m *MemoryStore) UpsertLead(_ context.Context, update *models.LeadUpdate) (*models.Lead, error) {
	m.leadMu.Lock()
	defer m.leadMu.Unlock()

	now := time.Now().UTC()
	lead, exists := m.leads[update.Phone]
	if !exists {
		m.leadCounter++
		lead = &models.Lead{
			ID:        m.leadCounter,
			Phone:     update.Phone,
			CreatedAt: now,
		}
		m.leads[update.Phone] = lead
	}
	update.Apply(lead)
	lead.UpdatedAt = now

	c := *lead
	return &c, nil
}

func (m *MemoryStore) GetLeadByPhone(_ context.Context, phone string) (*models.Lead, error) {
	m.leadMu.RLock()
	defer m.leadMu.RUnlock()

	lead, exists := m.leads[phone]
	if !exists {
		return nil, ErrNotFound
	}
	c := *lead
	return &c, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Knowledge operations
func (m *MemoryStore) UpsertKnowledgeDocuments(_ context.Context, docs []*models.KnowledgeDocument) error {
	m.knowledgeMu.Lock()
	defer m.knowledgeMu.Unlock()

	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID != 0 {
			if i := m.indexOf(doc.ID); i >= 0 {
				doc.CreatedAt = m.knowledge[i].CreatedAt
				doc.UpdatedAt = now
				stored := *doc
				m.knowledge[i] = &stored
				continue
			}
		} else {
			m.knowledgeCounter++
			doc.ID = m.knowledgeCounter
		}
		doc.CreatedAt, doc.UpdatedAt = now, now
		stored := *doc
		m.knowledge = append(m.knowledge, &stored)
	}
	return nil
}

func (m *MemoryStore) indexOf(id uint) int {
	for i, doc := range m.knowledge {
		if doc.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) SearchKnowledge(_ context.Context, collection string, embedding []float32, threshold float64, limit int) ([]*models.KnowledgeMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	m.knowledgeMu.RLock()
	defer m.knowledgeMu.RUnlock()

	var matches []*models.KnowledgeMatch
	for _, doc := range m.knowledge {
		if doc.Collection != collection {
			continue
		}
		sim := cosineSimilarity(embedding, doc.Embedding.Slice())
		if sim <= threshold {
			continue
		}
		matches = append(matches, &models.KnowledgeMatch{Document: *doc, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
