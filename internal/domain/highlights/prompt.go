package highlights

import "strings"

const SystemPrompt = "Você é um especialista em viralização de vídeos cristãos. Retorne APENAS JSON válido."

const windowPromptTemplate = `Você é um editor sênior de canais cristãos virais. Sua especialidade é encontrar, em pregações, os momentos que funcionam sozinhos como um corte curto.

ATENÇÃO: o texto abaixo é apenas um TRECHO da pregação, não o vídeo inteiro.
Selecione somente momentos com pico emocional, revelação bíblica profunda ou uma história ilustrativa completa.

CRITÉRIOS:
1. Início (hook): não pode começar com "E...", "Então..." ou "Mas...". Comece com uma afirmação forte ou uma pergunta.
2. Meio (retenção): a ideia precisa se desenvolver ou criar tensão.
3. Fim (punchline): termine logo após a frase de impacto ou a conclusão do raciocínio.

As citações devem ser cópias EXATAS do texto do trecho, pois serão usadas para localizar o corte.

Retorne um JSON com 2 a 3 sugestões DESTE TRECHO:
{
  "sugestoes": [
    {
      "titulo": "Título chamativo",
      "citacao_inicio": "primeiras 5 palavras exatas do corte",
      "citacao_fim": "últimas 5 palavras exatas do corte",
      "resumo": "explicação breve",
      "gatilho_viral": "Identificação | Medo | Esperança | Confronto",
      "score": 0
    }
  ]
}
O campo score vai de 0 a 100 e mede a força do corte.

Transcrição do TRECHO:
{{trecho}}
`

// WindowPrompt renders the user message for one window's text.
func WindowPrompt(text string) string {
	return strings.Replace(windowPromptTemplate, "{{trecho}}", text, 1)
}
