// Package langdetect guesses and normalizes transcript language codes.
package langdetect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// minConfidence below which a detection is reported as unknown.
const minConfidence = 0.2

type Detector struct{}

func New() Detector { return Detector{} }

// Detect returns an ISO 639-1 code for text, or "" when unsure.
func (Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if info.Confidence < minConfidence {
		return ""
	}
	return info.Lang.Iso6391()
}

// Normalize is the method form of the package-level Normalize.
func (Detector) Normalize(code string) string { return Normalize(code) }

// Normalize maps a code reported by an ASR engine ("pt-BR", "pt_br", "por")
// to its base ISO 639-1 form. Unknown values return "".
func Normalize(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" || strings.EqualFold(code, "auto") {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
