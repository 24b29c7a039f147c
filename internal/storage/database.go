package storage

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lemans-dev/sdr-whatsapp/internal/models"
)

// DatabaseStore implements Store and KnowledgeStore on PostgreSQL through gorm.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) SaveChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return errors.Wrap(err, "failed to save chat message")
	}
	return nil
}

func (s *DatabaseStore) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chat history")
	}

	reverse(msgs)
	return msgs, nil
}

func (s *DatabaseStore) UpsertLead(ctx context.Context, update *models.LeadUpdate) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("telefone = ?", update.Phone).
			First(&lead).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			lead = models.Lead{Phone: update.Phone}
			update.Apply(&lead)
			if err := insertLead(tx, &lead, update).Error; err != nil {
				return err
			}
			return tx.Where("telefone = ?", update.Phone).First(&lead).Error
		}
		if err != nil {
			return err
		}

		cols := update.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&lead).Updates(cols).Error; err != nil {
			return err
		}
		return tx.First(&lead, lead.ID).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upsert lead %s", update.Phone)
	}
	return &lead, nil
}

// insertLead creates the lead, or merges update into the row when a
// concurrent flush inserted the same phone first.
func insertLead(tx *gorm.DB, lead *models.Lead, update *models.LeadUpdate) *gorm.DB {
	cols := update.Columns()
	cols["updated_at"] = time.Now()
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telefone"}},
		DoUpdates: clause.Assignments(cols),
	}).Create(lead)
}

func (s *DatabaseStore) GetLeadByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).Where("telefone = ?", phone).First(&lead).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get lead")
	}
	return &lead, nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}
	return sqlDB.PingContext(ctx)
}

func (s *DatabaseStore) UpsertKnowledgeDocuments(ctx context.Context, docs []*models.KnowledgeDocument) error {
	if len(docs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"collection", "content", "metadata", "embedding", "updated_at"}),
		}).
		Create(docs).Error
	if err != nil {
		return errors.Wrap(err, "failed to upsert knowledge documents")
	}
	return nil
}

type knowledgeRow struct {
	models.KnowledgeDocument
	Similarity float64
}

func (s *DatabaseStore) SearchKnowledge(ctx context.Context, collection string, embedding []float32, threshold float64, limit int) ([]*models.KnowledgeMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	// <=> is cosine distance (1 - cosine similarity)
	vector := pgvector.NewVector(embedding)
	var rows []knowledgeRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT id, collection, content, metadata, created_at, updated_at,
			1 - (embedding <=> ?) AS similarity
		FROM knowledge_documents
		WHERE collection = ?
			AND 1 - (embedding <=> ?) > ?
		ORDER BY embedding <=> ?
		LIMIT ?`,
		vector, collection, vector, threshold, vector, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search knowledge documents")
	}

	matches := make([]*models.KnowledgeMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, &models.KnowledgeMatch{
			Document:   row.KnowledgeDocument,
			Similarity: row.Similarity,
		})
	}
	return matches, nil
}
