package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	pkgerrors "github.com/praxisnote/praxisnote/internal/pkg/errors"
)

// Redaction placeholders. Deterministic tokens so cached answers stay
// byte-identical between runs.
const (
	PlaceholderEmail = "[REDACTED-EMAIL]"
	PlaceholderPhone = "[REDACTED-PHONE]"
	PlaceholderID    = "[REDACTED-ID]"
)

// Default deny-list for prompt-injection attempts. Matching is best-effort:
// this is a last line of defense, not a guarantee.
var defaultInjectionPatterns = []string{
	`(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`,
	`(?i)disregard\s+(the\s+)?(system|previous|your)\s+(prompt|instructions|rules)`,
	`(?i)forget\s+(all\s+)?(your|the)\s+(instructions|rules|training)`,
	`(?i)you\s+are\s+now\s+(a|an|in)\b`,
	`(?i)pretend\s+(to\s+be|you\s+are)`,
	`(?i)act\s+as\s+(if\s+you|a|an)\b`,
	`(?i)(reveal|print|show)\s+(your|the)\s+(system\s+)?prompt`,
	`(?i)override\s+(your|the|all)\s+(instructions|settings|rules)`,
	`(?i)jailbreak`,
}

type redactor struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Filter scans incoming query text for injection attempts and redacts
// structured PII from outgoing answers. All patterns are compiled once at
// construction.
type Filter struct {
	injection []*regexp.Regexp
	redactors []redactor
	maxInput  int
}

type FilterConfig struct {
	MaxInputChars int
	// ExtraInjectionPatterns extends the built-in deny-list.
	ExtraInjectionPatterns []string
}

func NewFilter(cfg FilterConfig) (*Filter, error) {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 2000
	}
	f := &Filter{maxInput: cfg.MaxInputChars}
	for _, raw := range append(append([]string{}, defaultInjectionPatterns...), cfg.ExtraInjectionPatterns...) {
		pattern, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile injection pattern: %w", err)
		}
		f.injection = append(f.injection, pattern)
	}
	// Order matters: emails before phones before bare ID digit runs, so a
	// broader pattern never eats a narrower one's match.
	f.redactors = []redactor{
		{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), PlaceholderEmail},
		{regexp.MustCompile(`\+?\d{1,3}[\s\-.]?\(?\d{2,4}\)?([\s\-.]\d{2,4}){1,4}`), PlaceholderPhone},
		{regexp.MustCompile(`\b\d{7,10}[A-Za-z]?\b`), PlaceholderID},
	}
	return f, nil
}

// ScanInput strips control characters and rejects empty, oversized, or
// injection-flagged text. The matched span is never included in the error
// or logged.
func (f *Filter) ScanInput(text string) (string, error) {
	clean := stripControl(text)
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", fmt.Errorf("%w: empty query", pkgerrors.ErrInvalid)
	}
	if len(clean) > f.maxInput {
		return "", fmt.Errorf("%w: query exceeds %d chars", pkgerrors.ErrInvalid, f.maxInput)
	}
	for _, pattern := range f.injection {
		if pattern.MatchString(clean) {
			return "", fmt.Errorf("%w: query rejected by input filter", pkgerrors.ErrInvalid)
		}
	}
	return clean, nil
}

// RedactOutput replaces structured PII with fixed placeholders. Purely
// functional: no logging, no state.
func (f *Filter) RedactOutput(text string) string {
	for _, r := range f.redactors {
		text = r.pattern.ReplaceAllString(text, r.placeholder)
	}
	return text
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}
