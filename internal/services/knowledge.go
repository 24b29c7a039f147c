package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/models"
	"github.com/lemans-dev/sdr-whatsapp/internal/storage"
)

// Embedder turns text into vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestDocument is one entry of an ingest file.
type IngestDocument struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// KnowledgeService searches the company knowledge base by vector similarity.
type KnowledgeService struct {
	embedder Embedder
	store    storage.KnowledgeStore
	cfg      config.KnowledgeConfig
}

func NewKnowledgeService(embedder Embedder, store storage.KnowledgeStore, cfg config.KnowledgeConfig) *KnowledgeService {
	return &KnowledgeService{embedder: embedder, store: store, cfg: cfg}
}

// SearchLoteamentos returns documents about land lots. When loteamento is not
// empty, hits whose metadata "loteamento" differs (case-insensitively) are dropped.
func (k *KnowledgeService) SearchLoteamentos(ctx context.Context, query, loteamento string) ([]*models.KnowledgeMatch, error) {
	matches, err := k.search(ctx, k.cfg.CollectionLoteamentos, query, k.cfg.TopKLoteamentos)
	if err != nil {
		return nil, err
	}
	if loteamento == "" {
		return matches, nil
	}

	filtered := matches[:0]
	for _, m := range matches {
		name, _ := m.Document.MetadataMap()["loteamento"].(string)
		if strings.EqualFold(name, loteamento) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// SearchConstrutora returns documents about the construction business.
func (k *KnowledgeService) SearchConstrutora(ctx context.Context, query string) ([]*models.KnowledgeMatch, error) {
	return k.search(ctx, k.cfg.CollectionConstrutora, query, k.cfg.TopKConstrutora)
}

func (k *KnowledgeService) search(ctx context.Context, collection, query string, topK int) ([]*models.KnowledgeMatch, error) {
	embedding, err := k.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := k.store.SearchKnowledge(ctx, collection, embedding, k.cfg.MatchThreshold, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	slog.Debug("knowledge_search", "collection", collection, "matches", len(matches))
	return matches, nil
}

// Ingest embeds docs in one batch and stores them in collection.
func (k *KnowledgeService) Ingest(ctx context.Context, collection string, docs []IngestDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			return 0, fmt.Errorf("document %d has empty content", i)
		}
		texts[i] = d.Content
	}

	vectors, err := k.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return 0, err
	}

	rows := make([]*models.KnowledgeDocument, len(docs))
	for i, d := range docs {
		meta := "{}"
		if len(d.Metadata) > 0 {
			raw, err := json.Marshal(d.Metadata)
			if err != nil {
				return 0, fmt.Errorf("document %d metadata: %w", i, err)
			}
			meta = string(raw)
		}
		rows[i] = &models.KnowledgeDocument{
			Collection: collection,
			Content:    d.Content,
			Metadata:   meta,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	if err := k.store.UpsertKnowledgeDocuments(ctx, rows); err != nil {
		return 0, err
	}

	slog.Info("knowledge_ingested", "collection", collection, "documents", len(rows))
	return len(rows), nil
}
