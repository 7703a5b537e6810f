package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-insights-be/internal/insights"
)

func TestParseGrouping(t *testing.T) {
	cats, err := ParseGrouping("```json\n" + `[{"category": "<b>Boleto</b>", "count": 4, "original_reasons": ["Erro no Boleto!", "  "]}]` + "\n```")

	require.NoError(t, err)
	assert.Equal(t, []insights.Category{
		{Label: "Boleto", Count: 4, AbsorbedReasons: []string{"erro no boleto"}},
	}, cats)
}

func TestParseGroupingWrapped(t *testing.T) {
	cats, err := ParseGrouping(`{"grouped": [{"category": "Senha", "count": 2, "original_reasons": ["senha"]}]}`)

	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestParseGroupingRejects(t *testing.T) {
	inputs := []string{
		"",
		"```json\n```",
		"not json",
		`[]`,
		`{"grouped": []}`,
		`[{"count": 2, "original_reasons": ["a"]}]`,
		`[{"category": "A", "original_reasons": ["a"]}]`,
		`[{"category": "A", "count": "two", "original_reasons": ["a"]}]`,
	}
	for _, in := range inputs {
		_, err := ParseGrouping(in)
		assert.ErrorIs(t, err, insights.ErrClassificationUnavailable, "input %q", in)
	}
}

func TestBuildGroupingPrompt(t *testing.T) {
	prompt := buildGroupingPrompt([]insights.ReasonCount{
		{Reason: "erro no boleto", Count: 5},
		{Reason: `diz "oi"`, Count: 1},
	})

	assert.Equal(t, "Motivos de contato:\n- \"erro no boleto\" (5x)\n- \"diz \\\"oi\\\"\" (1x)", prompt)
	assert.Contains(t, groupingSystemPrompt, "no máximo 10 categorias")
}
