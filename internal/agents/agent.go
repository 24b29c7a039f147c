// Package agents holds the conversational agents and the supervisor that routes
// each buffered message to one of them.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lemans-dev/sdr-whatsapp/internal/models"
	"github.com/lemans-dev/sdr-whatsapp/internal/storage"
)

// Variant names an agent. The values are persisted in chat_memory.agent_name.
type Variant string

const (
	VariantGeral       Variant = "agente_geral"
	VariantLoteamentos Variant = "agente_loteamentos"
	VariantConstrutora Variant = "agente_construtora"
)

const executeHistoryLimit = 10

// LLM is the chat-completion backend. *services.OpenAIService satisfies it.
type LLM interface {
	ChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// KnowledgeContext returns reference text for query, or "" when nothing matched.
type KnowledgeContext func(ctx context.Context, query string) (string, error)

// Deps are shared by every agent.
type Deps struct {
	Store    storage.Store
	LLM      LLM
	Executor ToolExecutor
}

// Agent answers one user message with its own prompt and tool set.
type Agent struct {
	Name      Variant
	Prompt    string
	Tools     []openai.Tool
	Knowledge KnowledgeContext // optional

	store    storage.Store
	llm      LLM
	executor ToolExecutor
}

func newAgent(name Variant, prompt string, tools []openai.Tool, deps Deps) *Agent {
	executor := deps.Executor
	if executor == nil {
		executor = StubToolExecutor{}
	}
	return &Agent{
		Name:     name,
		Prompt:   prompt,
		Tools:    tools,
		store:    deps.Store,
		llm:      deps.LLM,
		executor: executor,
	}
}

// Execute stores msg, asks the LLM for a reply using the last ten history
// entries and stores the reply. Tool calls are run through the executor and
// their results become the reply.
func (a *Agent) Execute(ctx context.Context, sessionID, msg string) (string, error) {
	slog.Info("agent_execution_start", "agent", a.Name, "session_id", sessionID)

	reply, err := a.execute(ctx, sessionID, msg)
	if err != nil {
		slog.Error("agent_execution_error", "agent", a.Name, "session_id", sessionID, "error", err)
		return "", err
	}

	slog.Info("agent_execution_complete", "agent", a.Name, "session_id", sessionID, "response_length", len(reply))
	return reply, nil
}

func (a *Agent) execute(ctx context.Context, sessionID, msg string) (string, error) {
	if err := a.save(ctx, sessionID, models.RoleUser, msg, nil); err != nil {
		return "", fmt.Errorf("save user message: %w", err)
	}

	history, err := a.store.GetRecentMessages(ctx, sessionID, executeHistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.systemPrompt(ctx, sessionID, msg),
	})
	for _, h := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: chatRole(h.Role), Content: h.Content})
	}

	answer, err := a.llm.ChatCompletion(ctx, messages, a.Tools)
	if err != nil {
		return "", err
	}

	if len(answer.ToolCalls) > 0 {
		results := make([]string, 0, len(answer.ToolCalls))
		for _, call := range answer.ToolCalls {
			results = append(results, a.executor.Execute(ctx, sessionID, call))
		}
		reply := strings.Join(results, " ")
		meta := map[string]any{"tool_calls": len(answer.ToolCalls)}
		if err := a.save(ctx, sessionID, models.RoleAssistant, reply, meta); err != nil {
			return "", fmt.Errorf("save reply: %w", err)
		}
		return reply, nil
	}

	if err := a.save(ctx, sessionID, models.RoleAssistant, answer.Content, nil); err != nil {
		return "", fmt.Errorf("save reply: %w", err)
	}
	return answer.Content, nil
}

// systemPrompt appends knowledge base matches to the prompt. Search failures
// are logged and the bare prompt is used.
func (a *Agent) systemPrompt(ctx context.Context, sessionID, query string) string {
	if a.Knowledge == nil {
		return a.Prompt
	}
	extra, err := a.Knowledge(ctx, query)
	if err != nil {
		slog.Warn("knowledge_context_failed", "agent", a.Name, "session_id", sessionID, "error", err)
		return a.Prompt
	}
	if extra == "" {
		return a.Prompt
	}
	return a.Prompt + "\n\n" + extra
}

func (a *Agent) save(ctx context.Context, sessionID, role, content string, meta map[string]any) error {
	msg, err := models.NewChatMessage(sessionID, role, content, string(a.Name), meta)
	if err != nil {
		return err
	}
	return a.store.SaveChatMessage(ctx, msg)
}

// chatRole maps stored roles onto chat roles. Function results have no call
// id to attach to, so they are replayed as assistant turns.
func chatRole(role string) string {
	switch role {
	case models.RoleUser:
		return openai.ChatMessageRoleUser
	case models.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleAssistant
	}
}
