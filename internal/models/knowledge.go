package models

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// KnowledgeDocument is a chunk of company material indexed for similarity search.
type KnowledgeDocument struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Collection string          `json:"collection" gorm:"size:100;not null;index"`
	Content    string          `json:"content" gorm:"type:text;not null"`
	Metadata   string          `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	Embedding  pgvector.Vector `json:"-" gorm:"type:vector"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}

// MetadataMap decodes Metadata. Invalid JSON yields an empty map.
func (d *KnowledgeDocument) MetadataMap() map[string]any {
	out := map[string]any{}
	if d.Metadata == "" {
		return out
	}
	_ = json.Unmarshal([]byte(d.Metadata), &out)
	return out
}

// KnowledgeMatch is a search hit.
type KnowledgeMatch struct {
	Document   KnowledgeDocument `json:"document"`
	Similarity float64           `json:"similarity"`
}
