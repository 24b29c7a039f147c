package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lemans-dev/sdr-whatsapp/internal/storage"
)

const routingHistoryLimit = 5

// Routing keywords, matched as lowercase substrings. Lots are checked first.
var (
	loteamentosKeywords = []string{"terreno", "lote", "loteamento", "terra", "investimento"}
	construtoraKeywords = []string{"construir", "casa", "obra", "projeto", "construção"}
)

// Supervisor picks the agent that answers each message.
type Supervisor struct {
	store    storage.Store
	agents   map[Variant]*Agent
	fallback *Agent
}

// NewSupervisor registers agents by name. A VariantGeral agent is required and
// also answers for any variant that was not registered.
func NewSupervisor(store storage.Store, agents ...*Agent) (*Supervisor, error) {
	s := &Supervisor{store: store, agents: make(map[Variant]*Agent, len(agents))}
	for _, a := range agents {
		s.agents[a.Name] = a
	}
	s.fallback = s.agents[VariantGeral]
	if s.fallback == nil {
		return nil, fmt.Errorf("supervisor requires the %s agent", VariantGeral)
	}
	return s, nil
}

// SelectAgent routes on the latest message. A session without history always
// starts with the default agent.
func (s *Supervisor) SelectAgent(ctx context.Context, sessionID, msg string) (Variant, error) {
	history, err := s.store.GetRecentMessages(ctx, sessionID, routingHistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load routing history: %w", err)
	}
	if len(history) == 0 {
		slog.Info("first_message_routing_to_geral", "session_id", sessionID)
		return VariantGeral, nil
	}
	return classify(msg), nil
}

func classify(msg string) Variant {
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, loteamentosKeywords):
		return VariantLoteamentos
	case containsAny(lower, construtoraKeywords):
		return VariantConstrutora
	default:
		return VariantGeral
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// RouteAndRespond selects an agent and returns its reply.
func (s *Supervisor) RouteAndRespond(ctx context.Context, sessionID, msg string) (string, error) {
	variant, err := s.SelectAgent(ctx, sessionID, msg)
	if err != nil {
		return "", err
	}

	slog.Info("routing_decision", "session_id", sessionID, "selected_agent", variant)

	return s.agent(variant).Execute(ctx, sessionID, msg)
}

func (s *Supervisor) agent(v Variant) *Agent {
	if a, ok := s.agents[v]; ok {
		return a
	}
	slog.Warn("agent_not_registered", "selected_agent", v, "fallback", s.fallback.Name)
	return s.fallback
}
