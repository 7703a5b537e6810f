package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/utils"
)

var groupingSystemPrompt = fmt.Sprintf(`Você é um analista de atendimento ao cliente especializado em categorização detalhada de motivos de contato.

Regras:
- Agrupe motivos que são realmente o MESMO tema (ex: "problema login" e "não consigo entrar" = mesmo tema)
- NÃO agrupe motivos vagamente similares. Seja ESPECÍFICO e DETALHADO nos nomes das categorias
- Nomes de categoria devem ser descritivos e específicos (ex: "Erro ao Gerar Boleto", "Dúvida sobre Prazo de Entrega", "Alteração de Dados Cadastrais")
- NUNCA use categorias genéricas como "Informações Gerais", "Solicitações de Informações" ou "Outros"
- Se um motivo não se encaixa em nenhum grupo, mantenha-o com seu nome original
- Some as contagens dos motivos agrupados
- Retorne no máximo %d categorias, ordenadas por contagem decrescente
- Responda APENAS com JSON válido, sem markdown

Formato de resposta:
[{"category": "Nome Específico da Categoria", "count": 10, "original_reasons": ["motivo1", "motivo2"]}]`, insights.MaxCategories)

func buildGroupingPrompt(reasons []insights.ReasonCount) string {
	var sb strings.Builder
	sb.WriteString("Motivos de contato:\n")
	for _, r := range reasons {
		fmt.Fprintf(&sb, "- %q (%dx)\n", r.Reason, r.Count)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// categoryDTO uses pointers so missing fields can be told apart from zero values.
type categoryDTO struct {
	Category        *string  `json:"category"`
	Count           *int     `json:"count"`
	OriginalReasons []string `json:"original_reasons"`
}

// ParseGrouping decodes model output: a JSON array of categories, or an object with a
// "grouped" array, optionally wrapped in markdown code fences.
func ParseGrouping(raw string) ([]insights.Category, error) {
	cleaned := utils.StripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty model output", insights.ErrClassificationUnavailable)
	}

	var dtos []categoryDTO
	if strings.HasPrefix(cleaned, "{") {
		var wrapped struct {
			Grouped []categoryDTO `json:"grouped"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: decode grouping: %w", insights.ErrClassificationUnavailable, err)
		}
		dtos = wrapped.Grouped
	} else if err := json.Unmarshal([]byte(cleaned), &dtos); err != nil {
		return nil, fmt.Errorf("%w: decode grouping: %w", insights.ErrClassificationUnavailable, err)
	}
	return toCategories(dtos)
}

func toCategories(dtos []categoryDTO) ([]insights.Category, error) {
	if len(dtos) == 0 {
		return nil, fmt.Errorf("%w: no categories", insights.ErrClassificationUnavailable)
	}
	out := make([]insights.Category, 0, len(dtos))
	for i, d := range dtos {
		if d.Category == nil || d.Count == nil {
			return nil, fmt.Errorf("%w: category %d is missing fields", insights.ErrClassificationUnavailable, i)
		}
		absorbed := make([]string, 0, len(d.OriginalReasons))
		for _, r := range d.OriginalReasons {
			if n := insights.NormalizeReason(r); n != "" {
				absorbed = append(absorbed, n)
			}
		}
		out = append(out, insights.Category{
			Label:           utils.SanitizeLabel(*d.Category),
			Count:           *d.Count,
			AbsorbedReasons: absorbed,
		})
	}
	return out, nil
}
