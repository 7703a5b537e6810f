package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Erro no boleto", "erro no boleto"},
		{"erro no boleto.", "erro no boleto"},
		{"  Erro   no\tboleto!!  ", "erro no boleto"},
		{"Dúvida sobre PRAZO?", "dúvida sobre prazo"},
		{"O que é isso?!", "o que é isso"},
		{"ok. .", "ok"},
		{"v1.2 falhou", "v1.2 falhou"},
		{"...", ""},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeReason(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeReasonComposesAccents(t *testing.T) {
	decomposed := "Du\u0301vida"
	assert.Equal(t, NormalizeReason("Dúvida"), NormalizeReason(decomposed))
}

func TestNormalizeReasonIdempotent(t *testing.T) {
	inputs := []string{
		"Erro no Login!!",
		"abc. .",
		"  Cancelamento  de   plano ? ",
		"ÇÃO!?",
		"a.b.c.",
		"x ! y !",
	}
	for _, in := range inputs {
		once := NormalizeReason(in)
		assert.Equal(t, once, NormalizeReason(once), "input %q", in)
	}
}
