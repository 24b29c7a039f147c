package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatMessage(t *testing.T) {
	msg, err := NewChatMessage("5519999999999", RoleAssistant, "Oi!", "agente_geral", map[string]any{"tool_calls": 2})
	require.NoError(t, err)

	require.NotNil(t, msg.AgentName)
	assert.Equal(t, "agente_geral", *msg.AgentName)
	require.NotNil(t, msg.Metadata)
	assert.JSONEq(t, `{"tool_calls":2}`, *msg.Metadata)

	msg.Prepare()
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestNewChatMessageWithoutAgentOrMetadata(t *testing.T) {
	msg, err := NewChatMessage("5519", RoleUser, "oi", "", nil)
	require.NoError(t, err)
	assert.Nil(t, msg.AgentName)
	assert.Nil(t, msg.Metadata)
}

func TestTruncateNotes(t *testing.T) {
	short := "- quer lote no Jardim"
	assert.Equal(t, short, TruncateNotes(short))

	long := strings.Repeat("ç", 300)
	got := TruncateNotes(long)
	assert.Equal(t, MaxLeadNotes, len([]rune(got)))
}

func TestLeadUpdateApply(t *testing.T) {
	name := "Maria"
	qualified := true
	notes := strings.Repeat("a", 260)

	lead := &Lead{Phone: "5519"}
	upd := &LeadUpdate{Phone: "5519", Name: &name, Qualified: &qualified, Notes: &notes}
	upd.Apply(lead)

	assert.Equal(t, "Maria", *lead.Name)
	assert.True(t, lead.Qualified)
	assert.Nil(t, lead.Interest)
	assert.Len(t, *lead.Notes, MaxLeadNotes)

	cols := upd.Columns()
	assert.Equal(t, "Maria", cols["nome"])
	assert.Equal(t, true, cols["qualificado"])
	assert.NotContains(t, cols, "interesse")
}

func TestKnowledgeDocumentMetadataMap(t *testing.T) {
	doc := &KnowledgeDocument{Metadata: `{"loteamento":"Jardim Europa"}`}
	assert.Equal(t, "Jardim Europa", doc.MetadataMap()["loteamento"])

	bad := &KnowledgeDocument{Metadata: "not json"}
	assert.Empty(t, bad.MetadataMap())
}
