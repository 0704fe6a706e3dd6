package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	d := New()
	assert.Equal(t, "", d.Detect("   "))
	assert.Equal(t, "pt", d.Detect("Deus não desiste de você. Mesmo quando tudo parece perdido, ele continua trabalhando na sua vida e preparando um caminho novo."))
	assert.Equal(t, "en", d.Detect("God never gives up on you. Even when everything seems lost, he keeps working in your life and preparing a new road."))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"pt":    "pt",
		"pt-BR": "pt",
		"pt_br": "pt",
		"EN":    "en",
		"por":   "pt",
		"auto":  "",
		"":      "",
		"??":    "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Normalize(in))
		})
	}
}
