package highlights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

const strictBody = `{"sugestoes":[{"titulo":"A cura","citacao_inicio":"Deus não desiste","citacao_fim":"pelo nome","resumo":"graça","gatilho_viral":"Esperança","score":87}]}`

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "strict", content: strictBody},
		{name: "json fence", content: "```json\n" + strictBody + "\n```"},
		{name: "bare fence", content: "```\n" + strictBody + "```"},
		{name: "preface and trailer", content: "Claro! Aqui está o JSON:\n" + strictBody + "\nEspero ter ajudado {:}"},
		{name: "braces inside strings", content: `nota: {rascunho} ` + `{"sugestoes":[{"titulo":"fim }","citacao_inicio":"Deus não desiste","citacao_fim":"pelo nome","resumo":"graça","gatilho_viral":"Esperança","score":"87"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.content, 540)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Deus não desiste", got[0].StartQuote)
			assert.Equal(t, "pelo nome", got[0].EndQuote)
			assert.Equal(t, "Esperança", got[0].Trigger)
			assert.Equal(t, 87.0, got[0].Score)
			assert.Equal(t, 540.0, got[0].WindowStart)
		})
	}
}

func TestParseResponse_ScoreForms(t *testing.T) {
	t.Parallel()

	got, err := ParseResponse(`{"sugestoes":[
		{"citacao_inicio":"a","citacao_fim":"b","score":"85/100"},
		{"citacao_inicio":"a","citacao_fim":"b","score":140},
		{"citacao_inicio":"a","citacao_fim":"b","score":-3},
		{"citacao_inicio":"a","citacao_fim":"b","score":null},
		{"citacao_inicio":"a","citacao_fim":"b"},
		{"citacao_inicio":"a","citacao_fim":"b","score":"72,5"}
	]}`, 0)
	require.NoError(t, err)
	var scores []float64
	for _, c := range got {
		scores = append(scores, c.Score)
	}
	assert.Equal(t, []float64{85, 100, 0, 0, 0, 72.5}, scores)
}

func TestParseResponse_EmptyListIsNotAFailure(t *testing.T) {
	t.Parallel()

	got, err := ParseResponse(`{"sugestoes": []}`, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseResponse_Failures(t *testing.T) {
	t.Parallel()

	for _, content := range []string{
		"",
		"   ",
		"no json here",
		`{"sugestoes": [ {"titulo": "cut off`,
		`{"outra_coisa": 1}`,
		"```json\n```",
	} {
		_, err := ParseResponse(content, 0)
		require.Error(t, err, content)
		assert.True(t, apperr.IsKind(err, apperr.KindParse), content)
	}
}

func TestBalancedObjects(t *testing.T) {
	t.Parallel()

	got := balancedObjects(`x {"a":"}"} y {"b":{"c":"\"{"}} {"open":`)
	assert.Equal(t, []string{`{"a":"}"}`, `{"b":{"c":"\"{"}}`}, got)
}
