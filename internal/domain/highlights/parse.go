package highlights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/types"
)

type suggestion struct {
	Title      string `json:"titulo"`
	StartQuote string `json:"citacao_inicio"`
	EndQuote   string `json:"citacao_fim"`
	Summary    string `json:"resumo"`
	Trigger    string `json:"gatilho_viral"`
	Score      score  `json:"score"`
}

type response struct {
	Suggestions *[]suggestion `json:"sugestoes"`
}

// score accepts numbers and numeric strings such as "85" or "85/100".
type score float64

func (s *score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = 0
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if i := strings.IndexAny(str, "/% "); i >= 0 {
			str = str[:i]
		}
		if str == "" {
			*s = 0
			return nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(str, ",", "."), 64)
		if err != nil {
			return fmt.Errorf("score %q: %w", str, err)
		}
		*s = score(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = score(v)
	return nil
}

const maxScanAttempts = 16

// ParseResponse extracts candidates from raw inference output. It first
// strips markdown fences and parses strictly, then falls back to scanning
// for balanced {...} objects. Total failure is a ParseFailure.
func ParseResponse(content string, windowStart float64) ([]types.Candidate, error) {
	text := stripFences(content)
	if text == "" {
		return nil, apperr.Parse("parse response", errors.New("empty content"))
	}

	resp, err := decode(text)
	if err != nil {
		strictErr := err
		found := false
		for i, obj := range balancedObjects(text) {
			if i >= maxScanAttempts {
				break
			}
			if resp, err = decode(obj); err == nil {
				found = true
				break
			}
		}
		if !found {
			return nil, apperr.Parse("parse response", fmt.Errorf("%w (content: %q)", strictErr, truncate(text, 200)))
		}
	}

	out := make([]types.Candidate, 0, len(*resp.Suggestions))
	for _, s := range *resp.Suggestions {
		out = append(out, types.Candidate{
			Title:       strings.TrimSpace(s.Title),
			StartQuote:  strings.TrimSpace(s.StartQuote),
			EndQuote:    strings.TrimSpace(s.EndQuote),
			Summary:     strings.TrimSpace(s.Summary),
			Trigger:     strings.TrimSpace(s.Trigger),
			Score:       clampScore(float64(s.Score)),
			WindowStart: windowStart,
		})
	}
	return out, nil
}

func decode(s string) (response, error) {
	var r response
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return response{}, err
	}
	if r.Suggestions == nil {
		return response{}, errors.New(`missing "sugestoes"`)
	}
	return r, nil
}

func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		} else {
			t = strings.TrimPrefix(t, "```")
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
	}
	return strings.TrimSpace(t)
}

// balancedObjects yields every top-level {...} span in order, honoring
// string literals and escapes. An unterminated object ends the scan.
func balancedObjects(s string) []string {
	var out []string
	depth, start := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
