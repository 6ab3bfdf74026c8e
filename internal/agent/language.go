package agent

import "strings"

const (
	LanguageEnglish = "en"
	LanguageSpanish = "es"
)

var spanishMarkers = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "una": true,
	"qué": true, "que": true, "cómo": true, "cuándo": true, "cuánto": true,
	"dónde": true, "quién": true, "por": true, "para": true, "del": true,
	"con": true, "sobre": true, "sesión": true, "cliente": true, "fue": true,
	"hizo": true, "dolor": true, "es": true, "y": true, "mi": true,
}

var englishMarkers = map[string]bool{
	"the": true, "what": true, "when": true, "how": true, "why": true,
	"did": true, "does": true, "is": true, "was": true, "about": true,
	"client": true, "and": true, "with": true, "for": true, "on": true,
	"of": true, "to": true, "pain": true, "notes": true, "last": true,
}

// DetectLanguage classifies query text as English or Spanish. Inverted
// punctuation or Spanish diacritics decide immediately; otherwise marker
// words vote, with English as the tie-break.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	if strings.ContainsAny(lower, "¿¡ñáéíóúü") {
		return LanguageSpanish
	}
	var es, en int
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if spanishMarkers[word] {
			es++
		}
		if englishMarkers[word] {
			en++
		}
	}
	if es > en {
		return LanguageSpanish
	}
	return LanguageEnglish
}
