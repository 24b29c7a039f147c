package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lemans-dev/sdr-whatsapp/internal/models"
)

func TestReverse(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"single", []string{"a"}, []string{"a"}},
		{"even", []string{"a", "b", "c", "d"}, []string{"d", "c", "b", "a"}},
		{"odd", []string{"a", "b", "c"}, []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msgs []*models.ChatMessage
			for _, c := range tt.in {
				msgs = append(msgs, &models.ChatMessage{Content: c})
			}

			reverse(msgs)

			var got []string
			for _, m := range msgs {
				got = append(got, m.Content)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// newDryRunDB builds SQL without a server; nothing is executed.
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=sdr dbname=sdr sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestInsertLeadMergesOnPhoneConflict(t *testing.T) {
	db := newDryRunDB(t)
	name := "Ana"
	update := &models.LeadUpdate{Phone: "5519999999999", Name: &name}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		lead := models.Lead{Phone: update.Phone}
		update.Apply(&lead)
		return insertLead(tx, &lead, update)
	})

	assert.Contains(t, sql, `INSERT INTO "leads"`)
	assert.Contains(t, sql, `ON CONFLICT ("telefone") DO UPDATE SET`)
	assert.Contains(t, sql, `"nome"='Ana'`)
	assert.Contains(t, sql, `"updated_at"=`)
}

func TestInsertLeadWithoutFieldsStillMerges(t *testing.T) {
	db := newDryRunDB(t)
	update := &models.LeadUpdate{Phone: "5519888888888"}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return insertLead(tx, &models.Lead{Phone: update.Phone}, update)
	})

	assert.Contains(t, sql, `ON CONFLICT ("telefone") DO UPDATE SET`)
	assert.NotContains(t, sql, `"nome"=`)
}
