package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lemans-dev/sdr-whatsapp/internal/models"
	"github.com/lemans-dev/sdr-whatsapp/internal/storage"
)

// Tool names
const (
	ToolCadastroLead       = "cadastro_lead"
	ToolAnotacaoLead       = "anotacao_lead"
	ToolRegistrarInteresse = "registrar_interesse"
	ToolThink              = "think"
)

func function(name, description string, params jsonschema.Definition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func cadastroLeadTool() openai.Tool {
	return function(ToolCadastroLead,
		"Salva o nome do lead no banco de dados quando ele informar pela primeira vez",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"nome": {Type: jsonschema.String, Description: "Nome do lead"},
			},
			Required: []string{"nome"},
		})
}

func anotacaoLeadTool() openai.Tool {
	return function(ToolAnotacaoLead,
		"Adiciona anotações sobre a conversa para o vendedor (máx 250 chars)",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"notas": {
					Type:        jsonschema.String,
					Description: fmt.Sprintf("Anotações em bullet points, máximo %d caracteres", models.MaxLeadNotes),
				},
			},
			Required: []string{"notas"},
		})
}

func registrarInteresseTool() openai.Tool {
	return function(ToolRegistrarInteresse,
		"Registra a área de interesse do lead e se ele está qualificado para o vendedor",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"interesse": {
					Type:        jsonschema.String,
					Description: "Área de interesse do lead",
					Enum:        []string{models.InterestLoteamentos, models.InterestConstrutora, models.InterestOutros},
				},
				"qualificado": {
					Type:        jsonschema.Boolean,
					Description: "true quando o lead tem interesse real e condições de seguir com o vendedor",
				},
			},
			Required: []string{"interesse"},
		})
}

func thinkTool() openai.Tool {
	return function(ToolThink,
		"Use para pensar e analisar antes de decisões importantes",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"pensamento": {Type: jsonschema.String, Description: "Sua análise interna da situação"},
			},
			Required: []string{"pensamento"},
		})
}

// ToolExecutor runs one tool call and returns the text that becomes part of the reply.
type ToolExecutor interface {
	Execute(ctx context.Context, sessionID string, call openai.ToolCall) string
}

// StubToolExecutor only records the call.
type StubToolExecutor struct{}

func (StubToolExecutor) Execute(_ context.Context, sessionID string, call openai.ToolCall) string {
	slog.Info("tool_call", "function", call.Function.Name, "session_id", sessionID)
	return stubResult(call.Function.Name)
}

func stubResult(name string) string {
	return fmt.Sprintf("Tool %s executed", name)
}

// LeadToolExecutor persists lead data for the lead tools. Its return value is
// the same as StubToolExecutor's.
type LeadToolExecutor struct {
	store storage.Store
}

func NewLeadToolExecutor(store storage.Store) *LeadToolExecutor {
	return &LeadToolExecutor{store: store}
}

type leadToolArgs struct {
	Nome        string `json:"nome"`
	Notas       string `json:"notas"`
	Interesse   string `json:"interesse"`
	Qualificado *bool  `json:"qualificado"`
}

func (e *LeadToolExecutor) Execute(ctx context.Context, sessionID string, call openai.ToolCall) string {
	name := call.Function.Name
	slog.Info("tool_call", "function", name, "session_id", sessionID)

	update, err := leadUpdateFor(sessionID, name, call.Function.Arguments)
	if err != nil {
		slog.Warn("tool_call_invalid", "function", name, "session_id", sessionID, "error", err)
		return stubResult(name)
	}
	if update == nil {
		return stubResult(name)
	}

	if _, err := e.store.UpsertLead(ctx, update); err != nil {
		slog.Error("tool_call_failed", "function", name, "session_id", sessionID, "error", err)
	}
	return stubResult(name)
}

// leadUpdateFor returns nil for tools that do not touch the lead.
func leadUpdateFor(sessionID, tool, arguments string) (*models.LeadUpdate, error) {
	switch tool {
	case ToolCadastroLead, ToolAnotacaoLead, ToolRegistrarInteresse:
	default:
		return nil, nil
	}

	var args leadToolArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	update := &models.LeadUpdate{Phone: sessionID}
	switch tool {
	case ToolCadastroLead:
		nome := strings.TrimSpace(args.Nome)
		if nome == "" {
			return nil, fmt.Errorf("missing nome")
		}
		update.Name = &nome
	case ToolAnotacaoLead:
		notas := strings.TrimSpace(args.Notas)
		if notas == "" {
			return nil, fmt.Errorf("missing notas")
		}
		notas = models.TruncateNotes(notas)
		update.Notes = &notas
	case ToolRegistrarInteresse:
		interesse, ok := normalizeInterest(args.Interesse)
		if !ok {
			return nil, fmt.Errorf("unknown interesse %q", args.Interesse)
		}
		update.Interest = &interesse
		update.Qualified = args.Qualificado
	}
	return update, nil
}

func normalizeInterest(s string) (string, bool) {
	for _, v := range []string{models.InterestLoteamentos, models.InterestConstrutora, models.InterestOutros} {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return v, true
		}
	}
	return "", false
}
