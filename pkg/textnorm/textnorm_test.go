package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"accents and case", "Endereço da ESCOLA", "endereco da escola"},
		{"whitespace runs", "  prazo\n\tde   entrega ", "prazo de entrega"},
		{"cedilla and tilde", "Licitação Pública", "licitacao publica"},
		{"digits kept", "30 (trinta) DIAS ÚTEIS", "30 (trinta) dias uteis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFoldKeepsWhitespace(t *testing.T) {
	assert.Equal(t, "a\n\ncao", Fold("Á\n\nção"))
}

func TestFoldOffsets(t *testing.T) {
	raw := "Descrição do OBJETO"
	folded, offsets := FoldOffsets(raw)
	assert.Equal(t, "descricao do objeto", folded)
	assert.Len(t, offsets, len(folded)+1)

	i := strings.Index(folded, "objeto")
	assert.Equal(t, "OBJETO", raw[offsets[i]:offsets[i+len("objeto")]])
	assert.Equal(t, len(raw), offsets[len(folded)])
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Prazo de Entrega: 10 dias", Clean("Prazo\x00 de\n Entrega:�10 dias"))
	assert.Equal(t, "", Clean(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ação"+Ellipsis, Truncate("açãoXYZ", 4))
	assert.Equal(t, "ab"+Ellipsis, Truncate("ab cd", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard("", ""), 0.0001)
	assert.InDelta(t, 1.0, Jaccard("Prazo de Entrega", "prazo de entrega"), 0.0001)
	assert.InDelta(t, 0.5, Jaccard("prazo entrega", "prazo pagamento entrega dias"), 0.0001)
	assert.InDelta(t, 0.0, Jaccard("abc", "xyz"), 0.0001)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Nome da Escola", []string{"escola"}))
	assert.True(t, ContainsAny("ENDEREÇO", []string{"telefone", "endereco"}))
	assert.False(t, ContainsAny("Telefone", []string{"escola", ""}))
}
