package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/models"
)

// KnowledgeSearcher is implemented by *services.KnowledgeService.
type KnowledgeSearcher interface {
	SearchLoteamentos(ctx context.Context, query, loteamento string) ([]*models.KnowledgeMatch, error)
	SearchConstrutora(ctx context.Context, query string) ([]*models.KnowledgeMatch, error)
}

// NewGeral builds the default agent: greeting, name collection and triage.
func NewGeral(deps Deps, company config.CompanyConfig) *Agent {
	return newAgent(VariantGeral, renderPrompt(VariantGeral, company),
		[]openai.Tool{cadastroLeadTool(), anotacaoLeadTool(), thinkTool()}, deps)
}

// NewLoteamentos builds the land-lot specialist. ks may be nil.
func NewLoteamentos(deps Deps, company config.CompanyConfig, ks KnowledgeSearcher) *Agent {
	a := newAgent(VariantLoteamentos, renderPrompt(VariantLoteamentos, company),
		[]openai.Tool{cadastroLeadTool(), registrarInteresseTool(), anotacaoLeadTool(), thinkTool()}, deps)
	if ks != nil {
		a.Knowledge = func(ctx context.Context, query string) (string, error) {
			matches, err := ks.SearchLoteamentos(ctx, query, mentionedLoteamento(query, company.Loteamentos))
			if err != nil {
				return "", err
			}
			return formatKnowledge(matches), nil
		}
	}
	return a
}

// NewConstrutora builds the construction specialist. ks may be nil.
func NewConstrutora(deps Deps, company config.CompanyConfig, ks KnowledgeSearcher) *Agent {
	a := newAgent(VariantConstrutora, renderPrompt(VariantConstrutora, company),
		[]openai.Tool{cadastroLeadTool(), registrarInteresseTool(), anotacaoLeadTool(), thinkTool()}, deps)
	if ks != nil {
		a.Knowledge = func(ctx context.Context, query string) (string, error) {
			matches, err := ks.SearchConstrutora(ctx, query)
			if err != nil {
				return "", err
			}
			return formatKnowledge(matches), nil
		}
	}
	return a
}

// mentionedLoteamento returns the first known development named in text, or "".
func mentionedLoteamento(text string, names []string) string {
	lower := strings.ToLower(text)
	for _, name := range names {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func formatKnowledge(matches []*models.KnowledgeMatch) string {
	if len(matches) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Base de Conhecimento\nUse apenas as informações abaixo para responder sobre produtos, preços e condições.\n")
	for i, m := range matches {
		fmt.Fprintf(&sb, "\n### Documento %d\n%s\n", i+1, strings.TrimSpace(m.Document.Content))
	}
	return sb.String()
}
